package buildinfo_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/dietvault/internal/buildinfo"
)

func TestString(t *testing.T) {
	c := qt.New(t)

	c.Assert(buildinfo.String(), qt.Equals, "dev (commit unknown, branch unknown, built unknown)")
}
