package validate

import (
	"strings"
	"testing"
)

func TestValidateStripsDangerousContent(t *testing.T) {
	v := New(Config{})

	cases := []struct {
		name      string
		input     string
		forbidden []string
	}{
		{"script block", `help <script>alert(1)</script> me`, []string{"<script", "alert(1)", "</script"}},
		{"javascript uri", `click javascript:alert(1) now`, []string{"javascript:"}},
		{"nested javascript uri", `jajavascript:vascript:run()`, []string{"javascript:"}},
		{"event handler", `<img src=x onerror="steal()">hi`, []string{"onerror", "steal()", "<img"}},
		{"sql keywords", `x'; DROP TABLE users; SELECT * FROM t`, []string{"DROP", "SELECT"}},
		{"union", `1 UNION all`, []string{"UNION"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := v.Validate(tc.input, "")
			if !res.Suspicious {
				t.Fatalf("expected suspicious for %q", tc.input)
			}
			for _, bad := range tc.forbidden {
				if strings.Contains(strings.ToLower(res.SanitizedMessage), strings.ToLower(bad)) {
					t.Fatalf("sanitized output %q still contains %q", res.SanitizedMessage, bad)
				}
			}
		})
	}
}

func TestValidatePlainMessageNotSuspicious(t *testing.T) {
	v := New(Config{})
	res := v.Validate("I need someone to talk to tonight", "")
	if !res.Valid || res.Suspicious {
		t.Fatalf("expected valid non-suspicious result, got %+v", res)
	}
	if res.SanitizedMessage != "I need someone to talk to tonight" {
		t.Fatalf("unexpected sanitized message %q", res.SanitizedMessage)
	}
}

func TestValidateRejectsLengthAndRepeats(t *testing.T) {
	v := New(Config{})

	if res := v.Validate(strings.Repeat("ab", 5001), ""); res.Valid {
		t.Fatal("expected message over 10000 characters to be rejected")
	}
	if res := v.Validate("hello "+strings.Repeat("a", 100), ""); res.Valid {
		t.Fatal("expected repeated-character run to be rejected")
	}
	if res := v.Validate("hello "+strings.Repeat("a", 99), ""); !res.Valid {
		t.Fatalf("expected 99 repeats to pass, got %v", res.Reasons)
	}
	if res := v.Validate("   ", ""); res.Valid {
		t.Fatal("expected blank message to be rejected")
	}
	if res := v.Validate("<b></b>", ""); res.Valid {
		t.Fatal("expected message empty after sanitize to be rejected")
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"5551234567", "+15551234567", true},
		{"(555) 123-4567", "+15551234567", true},
		{"+1 555 123 4567", "+15551234567", true},
		{"15551234567", "+15551234567", true},
		{"25551234567", "", false},
		{"555123456", "", false},
		{"phone", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizePhoneTenDigitProperty(t *testing.T) {
	for i := 0; i < 1000; i++ {
		digits := make([]byte, 10)
		n := i * 7919
		for j := range digits {
			digits[j] = byte('0' + (n+j*31)%10)
		}
		got, ok := NormalizePhone(string(digits))
		if !ok || got != "+1"+string(digits) {
			t.Fatalf("NormalizePhone(%q) = %q,%v", digits, got, ok)
		}
	}
}

func TestValidateInvalidPhone(t *testing.T) {
	v := New(Config{})
	res := v.Validate("hello", "12")
	if res.Valid {
		t.Fatal("expected invalid phone to fail validation")
	}
	found := false
	for _, r := range res.Reasons {
		if r == ReasonInvalidPhone {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s reason, got %v", ReasonInvalidPhone, res.Reasons)
	}
}

func TestSanitizeRepeatsUntilStable(t *testing.T) {
	cases := []struct {
		input     string
		forbidden string
	}{
		{`o<b>nclick=alert(1)`, "onclick"},
		{`java<i>script:run()`, "javascript:"},
		{`<scr<b>ipt>alert(1)</script>`, "<script"},
		{`on<x>on<y>click=steal()`, "onclick"},
	}
	for _, tc := range cases {
		out, reasons := Sanitize(tc.input)
		if strings.Contains(strings.ToLower(out), tc.forbidden) {
			t.Fatalf("Sanitize(%q) = %q, still contains %q", tc.input, out, tc.forbidden)
		}
		if len(reasons) == 0 {
			t.Fatalf("Sanitize(%q) reported no reasons", tc.input)
		}
		if again, _ := Sanitize(out); again != out {
			t.Fatalf("Sanitize not idempotent: %q then %q", out, again)
		}
	}
}

func TestValidateLabel(t *testing.T) {
	v := New(Config{})

	if res := v.ValidateLabel("", 100); !res.Valid || res.SanitizedMessage != "" {
		t.Fatalf("empty label should be valid, got %+v", res)
	}
	if res := v.ValidateLabel("  Sam  ", 100); !res.Valid || res.Suspicious || res.SanitizedMessage != "Sam" {
		t.Fatalf("unexpected result for plain name: %+v", res)
	}
	if res := v.ValidateLabel(strings.Repeat("ab", 60), 100); res.Valid {
		t.Fatal("expected over-long label to be rejected")
	}
	if res := v.ValidateLabel("Sam "+strings.Repeat("z", 30), 100); res.Valid {
		t.Fatal("expected repeated run in a label to be rejected")
	}

	res := v.ValidateLabel(`<script>alert(1)</script> javascript:steal() Sam`, 100)
	if !res.Valid || !res.Suspicious {
		t.Fatalf("expected sanitized suspicious label, got %+v", res)
	}
	for _, bad := range []string{"<", "alert(1)", "javascript:"} {
		if strings.Contains(res.SanitizedMessage, bad) {
			t.Fatalf("label %q still contains %q", res.SanitizedMessage, bad)
		}
	}

	if res := v.ValidateLabel("<b></b>", 100); res.Valid {
		t.Fatal("expected label that sanitizes to nothing to be rejected")
	}
}
