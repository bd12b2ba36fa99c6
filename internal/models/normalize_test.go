package models

import (
	"testing"
	"time"
)

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Budi Santoso":       "budi santoso",
		"  budi   SANTOSO  ": "budi santoso",
		"Budi\tSantoso\n":    "budi santoso",
		"\uFF22\uFF35\uFF24\uFF29": "budi", // full-width letters fold through NFKC
		"":                   "",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePlayerStatus(t *testing.T) {
	tests := []struct {
		in   string
		want PlayerStatus
		ok   bool
	}{
		{"ACTIVE", PlayerStatusActive, true},
		{"active", PlayerStatusActive, true},
		{" Inactive ", PlayerStatusInactive, true},
		{"tentative", PlayerStatusTentative, true},
		{"retired", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePlayerStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePlayerStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseMatchPaymentStatus(t *testing.T) {
	tests := []struct {
		in   string
		want MatchPaymentStatus
		ok   bool
	}{
		{"BELUM_SETOR", MatchPaymentUnpaid, true},
		{"belum setor", MatchPaymentUnpaid, true},
		{"Belum-Setor", MatchPaymentUnpaid, true},
		{"unpaid", MatchPaymentUnpaid, true},
		{"sudah_setor", MatchPaymentPaid, true},
		{"paid", MatchPaymentPaid, true},
		{"maybe", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMatchPaymentStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMatchPaymentStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseMatchAndPaymentStatus(t *testing.T) {
	if s, ok := ParseMatchStatus("upcoming"); !ok || s != MatchStatusUpcoming {
		t.Fatalf("got (%q, %v)", s, ok)
	}
	if s, ok := ParseMatchStatus("Completed"); !ok || s != MatchStatusCompleted {
		t.Fatalf("got (%q, %v)", s, ok)
	}
	if _, ok := ParseMatchStatus("LIVE"); ok {
		t.Fatal("expected LIVE to be rejected")
	}
	if s, ok := ParsePaymentStatus("canceled"); !ok || s != PaymentStatusCancelled {
		t.Fatalf("got (%q, %v)", s, ok)
	}
	if s, ok := ParsePaymentStatus("paid"); !ok || s != PaymentStatusPaid {
		t.Fatalf("got (%q, %v)", s, ok)
	}
}

func TestDateOfDropsClockAndZone(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	in := time.Date(2025, 1, 15, 23, 30, 0, 0, wib)
	m := Match{Date: DateOf(in)}
	want := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := m.Day(); !got.Equal(want) {
		t.Fatalf("Day = %v, want %v", got, want)
	}
}
