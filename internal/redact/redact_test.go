package redact

import "testing"

func TestRedactEmails(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain address",
			in:   "contact john.doe@example.com now",
			want: "contact j***@example.com now",
		},
		{
			name: "address with plus tag",
			in:   "billing+invoices@corp.example.org",
			want: "b***@corp.example.org",
		},
		{
			name: "two addresses",
			in:   "from alice@a.com to bob@b.org",
			want: "from a***@a.com to b***@b.org",
		},
		{
			name: "bare at sign untouched",
			in:   "meet @ noon",
			want: "meet @ noon",
		},
		{
			name: "no tld untouched",
			in:   "user@localhost",
			want: "user@localhost",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Redact(tt.in); got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactDigitRuns(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "card number with spaces",
			in:   "card 4111 1111 1111 1111 on file",
			want: "card 4111********1111 on file",
		},
		{
			name: "ten digit phone",
			in:   "call 555-123-4567",
			want: "call 5551**4567",
		},
		{
			name: "nine digit id",
			in:   "ssn 123-45-6789",
			want: "ssn 123***6789",
		},
		{
			name: "seven digit phone keeps at least one digit hidden",
			in:   "dial 555-1234",
			want: "dial 555***234",
		},
		{
			name: "short digits untouched",
			in:   "order 1234 confirmed",
			want: "order 1234 confirmed",
		},
		{
			name: "version string untouched",
			in:   "running v2.5.1 today",
			want: "running v2.5.1 today",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Redact(tt.in); got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactIdempotent(t *testing.T) {
	r := NewRedactor()

	inputs := []string{
		"contact john.doe@example.com or call 555-123-4567",
		"card 4111 1111 1111 1111, ssn 123-45-6789",
		"from alice@a.com: dial 555-1234 before it expires",
		"plain text with no pii at all",
	}

	for _, in := range inputs {
		once := r.Redact(in)
		twice := r.Redact(once)
		if once != twice {
			t.Errorf("Redact not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestRedactHeaders(t *testing.T) {
	r := NewRedactor()

	in := "From: Alice <alice@example.com>\n" +
		"X-Forwarded-For: 203.0.113.7\n" +
		"X-Real-IP: 198.51.100.9\n" +
		"Subject: hello"

	got := r.RedactHeaders(in)

	want := "From: Alice <a***@example.com>\n" +
		"X-Forwarded-For: [redacted]\n" +
		"X-Real-IP: [redacted]\n" +
		"Subject: hello"

	if got != want {
		t.Errorf("RedactHeaders mismatch:\n got: %q\nwant: %q", got, want)
	}
}
