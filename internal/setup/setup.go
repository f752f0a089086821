// Package setup registers and unregisters the diet MCP server with supported
// coding agents (Claude Code, Cursor).
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ServerName is the key of the diet entry under mcpServers.
const ServerName = "dietvault"

// Result is the return value from all Setup/Uninstall functions.
type Result struct {
	Status  string // always "ok"
	Message string
}

func ok(msg string) Result          { return Result{Status: "ok", Message: msg} }
func okf(f string, a ...any) Result { return ok(fmt.Sprintf(f, a...)) }

var mcpConfig = map[string]any{
	"command": "diet",
	"args":    []any{"mcp"},
	"type":    "stdio",
}

// DefaultClaudeHome returns the default ~/.claude directory.
func DefaultClaudeHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// DefaultCursorHome returns the default ~/.cursor directory.
func DefaultCursorHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cursor")
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func readJSON(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(map[string]any)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(map[string]any)
	}
	return m
}

func writeJSON(path string, data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644) // #nosec G306 -- agent config files (MCP server entries) do not contain secrets
}

func installMCPServers(path string) (bool, error) {
	data := readJSON(path)
	servers, _ := data["mcpServers"].(map[string]any)
	if servers == nil {
		servers = make(map[string]any)
		data["mcpServers"] = servers
	}
	if _, exists := servers[ServerName]; exists {
		return false, nil
	}
	servers[ServerName] = mcpConfig
	return true, writeJSON(path, data)
}

func uninstallMCPServers(path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	data := readJSON(path)
	servers, _ := data["mcpServers"].(map[string]any)
	if _, exists := servers[ServerName]; !exists {
		return false, nil
	}
	delete(servers, ServerName)
	if len(servers) == 0 {
		delete(data, "mcpServers")
	}
	if len(data) == 0 {
		return true, os.Remove(path)
	}
	return true, writeJSON(path, data)
}

//revive:disable:flag-parameter
func claudeMCPPath(claudeHome string, project bool) string {
	if project {
		return filepath.Join(filepath.Dir(claudeHome), ".mcp.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude.json")
}

// SetupClaudeCode registers the diet MCP server with Claude Code, either in
// the project's .mcp.json or the user's ~/.claude.json.
// claudeHome defaults to ~/.claude when empty.
func SetupClaudeCode(claudeHome string, project bool) (Result, error) {
	if claudeHome == "" {
		claudeHome = DefaultClaudeHome()
	}
	path := claudeMCPPath(claudeHome, project)
	added, err := installMCPServers(path)
	if err != nil {
		return Result{}, fmt.Errorf("setup claude-code: %w", err)
	}
	if !added {
		return ok("Already installed"), nil
	}
	return okf("Installed: mcpServers in %s", filepath.Base(path)), nil
}

// UninstallClaudeCode removes the diet MCP server from Claude Code.
func UninstallClaudeCode(claudeHome string, project bool) (Result, error) {
	if claudeHome == "" {
		claudeHome = DefaultClaudeHome()
	}
	path := claudeMCPPath(claudeHome, project)
	done, err := uninstallMCPServers(path)
	if err != nil {
		return Result{}, fmt.Errorf("uninstall claude-code: %w", err)
	}
	if !done {
		return ok("Nothing to remove"), nil
	}
	return okf("Removed: mcpServers from %s", filepath.Base(path)), nil
}

//revive:enable:flag-parameter

// SetupCursor registers the diet MCP server in Cursor's mcp.json.
// cursorHome defaults to ~/.cursor when empty.
func SetupCursor(cursorHome string) (Result, error) {
	if cursorHome == "" {
		cursorHome = DefaultCursorHome()
	}
	added, err := installMCPServers(filepath.Join(cursorHome, "mcp.json"))
	if err != nil {
		return Result{}, fmt.Errorf("setup cursor: %w", err)
	}
	if !added {
		return ok("Already installed"), nil
	}
	return ok("Installed: mcpServers"), nil
}

// UninstallCursor removes the diet MCP server from Cursor.
func UninstallCursor(cursorHome string) (Result, error) {
	if cursorHome == "" {
		cursorHome = DefaultCursorHome()
	}
	done, err := uninstallMCPServers(filepath.Join(cursorHome, "mcp.json"))
	if err != nil {
		return Result{}, fmt.Errorf("uninstall cursor: %w", err)
	}
	if !done {
		return ok("Nothing to remove"), nil
	}
	return ok("Removed: mcpServers"), nil
}
