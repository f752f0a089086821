// Package checkers provides quicktest checkers shared by the test suites.
package checkers

import (
	"encoding/json"
	"fmt"
	"reflect"

	qt "github.com/frankban/quicktest"
	"github.com/yalp/jsonpath"
)

// JSONPathEquals returns a checker asserting that the JSON document passed as
// got ([]byte or string) holds want at path. want is compared after a JSON
// round trip, so 3 matches a decoded 3.0.
//
//	c.Assert(data, checkers.JSONPathEquals("$.mcpServers.dietvault.command"), "diet")
func JSONPathEquals(path string) qt.Checker {
	return &jsonPathChecker{path: path}
}

type jsonPathChecker struct {
	path string
}

func (c *jsonPathChecker) ArgNames() []string {
	return []string{"got", "want"}
}

func (c *jsonPathChecker) Check(got any, args []any, note func(key string, value any)) error {
	doc, err := decode(got)
	if err != nil {
		return qt.BadCheckf("%s", err)
	}
	value, err := jsonpath.Read(doc, c.path)
	if err != nil {
		note("path", c.path)
		return fmt.Errorf("cannot read path: %w", err)
	}
	want, err := normalize(args[0])
	if err != nil {
		return qt.BadCheckf("cannot normalize want: %s", err)
	}
	if !reflect.DeepEqual(value, want) {
		note("path", c.path)
		note("value", value)
		return fmt.Errorf("value at path does not match")
	}
	return nil
}

func decode(got any) (any, error) {
	var data []byte
	switch v := got.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, fmt.Errorf("got must be []byte or string, not %T", got)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("got is not valid JSON: %w", err)
	}
	return doc, nil
}

func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
