package domain

import (
	"errors"
	"testing"
)

func TestParseTokenID(t *testing.T) {
	tests := []struct {
		input   string
		want    TokenID
		wantErr bool
	}{
		{"1", 1, false},
		{" 42 ", 42, false},
		{"18446744073709551615", TokenID(^uint64(0)), false},
		{"0", 0, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTokenID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Fatalf("ParseTokenID(%q) error = %v, want ErrBadRequest", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTokenID(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegistryState_Allocate(t *testing.T) {
	s := NewRegistryState()
	if s.Initialized() {
		t.Error("new state should not be initialized")
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("new state invalid: %v", err)
	}

	for want := TokenID(1); want <= 5; want++ {
		if got := s.Allocate(); got != want {
			t.Fatalf("Allocate() = %d, want %d", got, want)
		}
		if err := s.Validate(); err != nil {
			t.Fatalf("state invalid after allocate: %v", err)
		}
	}
	if s.TotalSupply != 5 || s.NextID != 6 {
		t.Errorf("counters = (%d, %d), want (5, 6)", s.TotalSupply, s.NextID)
	}
}

func TestRegistryState_ValidateDetectsDrift(t *testing.T) {
	s := &RegistryState{NextID: 3, TotalSupply: 1}
	if err := s.Validate(); !errors.Is(err, ErrStorageError) {
		t.Errorf("Validate() = %v, want ErrStorageError", err)
	}
}

func TestRegistryState_Clone(t *testing.T) {
	s := NewRegistryState()
	c := s.Clone()
	c.Allocate()
	if s.NextID != FirstTokenID {
		t.Error("Clone shares state with original")
	}
}

func TestClaimToken_Validate(t *testing.T) {
	owner := MustParseAddress(checksummed)
	tests := []struct {
		name    string
		token   ClaimToken
		wantErr error
	}{
		{"valid", ClaimToken{ID: 1, Owner: owner}, nil},
		{"zero id", ClaimToken{ID: 0, Owner: owner}, ErrBadRequest},
		{"empty owner", ClaimToken{ID: 1}, ErrInvalidOwner},
		{"non-canonical owner", ClaimToken{ID: 1, Owner: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"}, ErrInvalidOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.token.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClaimToken_Clone(t *testing.T) {
	var nilToken *ClaimToken
	if nilToken.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}

	tok := &ClaimToken{ID: 7, ClaimData: "x"}
	c := tok.Clone()
	c.ClaimData = "y"
	if tok.ClaimData != "x" {
		t.Error("Clone shares memory with original")
	}
}
