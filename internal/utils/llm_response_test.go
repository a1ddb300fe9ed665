package utils

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"classification":"safe"}`,
			want:  `{"classification":"safe"}`,
		},
		{
			name:  "object wrapped in prose",
			input: "Here is the analysis:\n{\"classification\":\"phishing\"}\nLet me know.",
			want:  `{"classification":"phishing"}`,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"risk_score\": 80}\n```",
			want:  `{"risk_score": 80}`,
		},
		{
			name:    "no object",
			input:   "I cannot classify this email.",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}
