package database

import "testing"

func TestQueryEncode(t *testing.T) {
	got := NewQuery().
		Select("user_id,email").
		Eq("is_blocked", "true").
		Order("created_at", true).
		Limit(50).
		Encode()
	want := "select=user_id%2Cemail&is_blocked=eq.true&order=created_at.desc&limit=50"
	if got != want {
		t.Fatalf("encoded %q, want %q", got, want)
	}
}

func TestQueryPreservesCallOrder(t *testing.T) {
	got := NewQuery().Gte("created_at", "2026-01-01").Lt("created_at", "2026-02-01").Offset(10).Encode()
	want := "created_at=gte.2026-01-01&created_at=lt.2026-02-01&offset=10"
	if got != want {
		t.Fatalf("encoded %q, want %q", got, want)
	}
}

func TestQueryInAndContains(t *testing.T) {
	got := NewQuery().In("severity", []string{"HIGH", "CRIT"}).Encode()
	want := "severity=in.%28HIGH%2CCRIT%29"
	if got != want {
		t.Fatalf("in encoded %q, want %q", got, want)
	}

	got = NewQuery().Contains("tags", []string{"vip"}).Encode()
	want = "tags=cs.%7Bvip%7D"
	if got != want {
		t.Fatalf("contains encoded %q, want %q", got, want)
	}
}

func TestQueryOrEscapesDisjunction(t *testing.T) {
	got := NewQuery().Or("email.ilike.*aya*,first_name.ilike.*aya*").Encode()
	want := "or=%28email.ilike.%2Aaya%2A%2Cfirst_name.ilike.%2Aaya%2A%29"
	if got != want {
		t.Fatalf("or encoded %q, want %q", got, want)
	}
}

func TestQueryIlikeAndIs(t *testing.T) {
	got := NewQuery().Ilike("business_name", "*atelier*").Is("deleted_at", "null").Encode()
	want := "business_name=ilike.%2Aatelier%2A&deleted_at=is.null"
	if got != want {
		t.Fatalf("encoded %q, want %q", got, want)
	}
}
