package version

import (
	"strings"
	"testing"
)

func TestInfo_Defaults(t *testing.T) {
	t.Parallel()
	b := Info()
	if b.Service != Service || b.Version != "dev" || b.Commit != "none" || b.Date != "unknown" {
		t.Fatalf("info = %+v", b)
	}
	if s := b.String(); !strings.HasPrefix(s, "cancioneiro-api dev") {
		t.Fatalf("string = %q", s)
	}
}
