package cmd

import "testing"

func TestValidateRunID(t *testing.T) {
	testCases := []struct {
		id      string
		wantErr bool
	}{
		{id: "0b6c3e1e-2f1d-4c55-9d1e-1f0c5d8b9a77", wantErr: false},
		{id: "run_1.bak", wantErr: false},
		{id: "", wantErr: true},
		{id: ".", wantErr: true},
		{id: "..", wantErr: true},
		{id: "../other", wantErr: true},
		{id: `..\other`, wantErr: true},
		{id: "run id", wantErr: true},
	}

	for _, tc := range testCases {
		err := validateRunID(tc.id)
		if (err != nil) != tc.wantErr {
			t.Errorf("validateRunID(%q): expected error=%v, got %v", tc.id, tc.wantErr, err)
		}
	}
}
