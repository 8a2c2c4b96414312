package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		layout DateLayout
		want   string // YYYY-MM-DD, empty for no date
	}{
		{"day first", "15/03/2024", LayoutDMY, "2024-03-15"},
		{"month first", "03/15/2024", LayoutMDY, "2024-03-15"},
		{"dash separators", "15-03-2024", LayoutDMY, "2024-03-15"},
		{"dot separators", "15.03.2024", LayoutDMY, "2024-03-15"},
		{"iso order", "2024-03-15", LayoutDMY, "2024-03-15"},
		{"iso order with mdy layout", "2024-03-15", LayoutMDY, "2024-03-15"},
		{"trailing time ignored", "15/03/2024 10:30", LayoutDMY, "2024-03-15"},
		{"surrounding spaces", "  01/02/2024 ", LayoutDMY, "2024-02-01"},
		{"month out of range", "13/45/2024", LayoutDMY, ""},
		{"day out of range", "32/01/2024", LayoutDMY, ""},
		{"day zero", "00/01/2024", LayoutDMY, ""},
		{"year too old", "01/01/1999", LayoutDMY, ""},
		{"year too new", "01/01/2101", LayoutDMY, ""},
		{"two digit year", "01/01/24", LayoutDMY, ""},
		{"short month overflows", "31/02/2024", LayoutDMY, "2024-03-02"},
		{"non numeric parts", "aa/bb/cc", LayoutDMY, ""},
		{"long form fallback", "March 5, 2024", LayoutDMY, "2024-03-05"},
		{"rfc3339 fallback via iso parts", "2024-03-05T23:00:00Z", LayoutDMY, "2024-03-05"},
		{"garbage", "hello", LayoutDMY, ""},
		{"empty", "", LayoutDMY, ""},
		{"blank", "   ", LayoutDMY, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDate(tc.in, tc.layout)
			if got.String() != tc.want {
				t.Fatalf("ParseDate(%q, %s) = %q, want %q", tc.in, tc.layout, got.String(), tc.want)
			}
		})
	}
}

func TestParseDateComponents(t *testing.T) {
	d := ParseDate("15/03/2024", LayoutDMY)
	if !d.Valid() {
		t.Fatal("expected a valid date")
	}
	if d.Year() != 2024 || d.Month() != 3 || d.Day() != 15 {
		t.Fatalf("got %d-%d-%d, want 2024-3-15", d.Year(), d.Month(), d.Day())
	}
	if d.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", d.Location())
	}
}

func TestParseDateLayout(t *testing.T) {
	cases := []struct {
		in      string
		want    DateLayout
		wantErr bool
	}{
		{"", LayoutDMY, false},
		{"dmy", LayoutDMY, false},
		{" MDY ", LayoutMDY, false},
		{"ymd", "", true},
	}
	for _, tc := range cases {
		got, err := ParseDateLayout(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseDateLayout(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseDateLayout(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
