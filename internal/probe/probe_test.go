package probe

import (
	"context"
	"testing"

	"github.com/netradar/netradar/internal/domain"
)

func TestSetDispatch(t *testing.T) {
	s := DefaultSet()
	cases := []struct {
		typ  domain.TargetType
		want Checker
	}{
		{domain.TypePing, s.Ping},
		{domain.TypeHTTP, s.HTTP},
		{domain.TypeTCP, s.TCP},
		{domain.TypeDNS, s.DNS},
	}
	for _, c := range cases {
		if got := s.For(domain.Target{Type: c.typ}); got != c.want {
			t.Fatalf("dispatch for %q picked the wrong checker", c.typ)
		}
	}
}

func TestSetDispatch_UnknownType(t *testing.T) {
	s := DefaultSet()
	chk := s.For(domain.Target{Type: "carrier-pigeon"})
	out := chk.Check(context.Background(), domain.Target{Name: "x"})
	if out.Success || out.Error != "Unknown type" {
		t.Fatalf("unknown type should fail cleanly, got %+v", out)
	}
}
