package transformer

import (
	"testing"
	"time"

	"stopprep/internal/schema"
)

func TestParseValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		typ  schema.Type
		in   string
		want any
		ok   bool
	}{
		{"text_passthrough", schema.Text, " keep ", " keep ", true},
		{"bool_true", schema.Boolean, "TRUE", true, true},
		{"bool_y", schema.Boolean, "y", true, true},
		{"bool_zero", schema.Boolean, "0", false, true},
		{"bool_bad", schema.Boolean, "maybe", nil, false},
		{"int", schema.Integer, "42", int64(42), true},
		{"int_from_integral_float", schema.Integer, "42.0", int64(42), true},
		{"int_fraction_rejected", schema.Integer, "42.5", nil, false},
		{"int_bad", schema.Integer, "forty", nil, false},
		{"float", schema.Float, "-122.41", -122.41, true},
		{"float_bad", schema.Float, "n/a", nil, false},
		{"date_iso", schema.Date, "2017-03-04", time.Date(2017, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"date_us", schema.Date, "03/04/2017", time.Date(2017, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"date_impossible", schema.Date, "2021-02-30", nil, false},
		{"date_bad", schema.Date, "yesterday", nil, false},
		{"time_hms", schema.Time, "13:05:09", 13*time.Hour + 5*time.Minute + 9*time.Second, true},
		{"time_hm", schema.Time, "7:30", 7*time.Hour + 30*time.Minute, true},
		{"time_bad", schema.Time, "25:00", nil, false},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseValue(c.typ, c.in)
			if c.ok != (err == nil) {
				t.Fatalf("ParseValue(%s, %q) err = %v, want ok=%v", c.typ, c.in, err, c.ok)
			}
			if c.ok {
				if tm, isTime := c.want.(time.Time); isTime {
					if !got.(time.Time).Equal(tm) {
						t.Fatalf("ParseValue(%s, %q) = %v, want %v", c.typ, c.in, got, c.want)
					}
					return
				}
				if got != c.want {
					t.Fatalf("ParseValue(%s, %q) = %#v, want %#v", c.typ, c.in, got, c.want)
				}
			}
		})
	}
}

func TestCast(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		typ  schema.Type
		in   any
		want any
		ok   bool
	}{
		{"nil_stays_nil", schema.Integer, nil, nil, true},
		{"int_to_float", schema.Float, int64(3), float64(3), true},
		{"integral_float_to_int", schema.Integer, float64(3), int64(3), true},
		{"fractional_float_to_int", schema.Integer, 3.5, nil, false},
		{"string_is_parsed", schema.Boolean, "false", false, true},
		{"int_to_text", schema.Text, int64(17), "17", true},
		{"bool_to_int", schema.Integer, true, nil, false},
		{"duration_out_of_range", schema.Time, 25 * time.Hour, nil, false},
		{"date_truncates_clock", schema.Date, time.Date(2020, 1, 2, 15, 4, 5, 0, time.UTC), time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), true},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := Cast(c.typ, c.in)
			if c.ok != (err == nil) {
				t.Fatalf("Cast(%s, %#v) err = %v, want ok=%v", c.typ, c.in, err, c.ok)
			}
			if !c.ok {
				return
			}
			if tm, isTime := c.want.(time.Time); isTime {
				if !got.(time.Time).Equal(tm) {
					t.Fatalf("Cast = %v, want %v", got, tm)
				}
				return
			}
			if got != c.want {
				t.Fatalf("Cast(%s, %#v) = %#v, want %#v", c.typ, c.in, got, c.want)
			}
		})
	}
}

func BenchmarkParseISODate(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, ok := parseISODate("2017-03-04"); !ok {
			b.Fatal("parse failed")
		}
	}
}
