package models

import (
	"errors"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"checksummed", "0xFfb6505912FCE95B42be4860477201bb4e204E9f", true},
		{"lowercase", "0xffb6505912fce95b42be4860477201bb4e204e9f", true},
		{"uppercase hex", "0xFFB6505912FCE95B42BE4860477201BB4E204E9F", true},
		{"empty", "", false},
		{"not hex", "0xNotAnAddress", false},
		{"missing prefix", "Ffb6505912FCE95B42be4860477201bb4e204E9f", false},
		{"too short", "0xFfb6505912FCE95B42be4860477201bb4e204E", false},
		{"too long", "0xFfb6505912FCE95B42be4860477201bb4e204E9f00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress("recipientAddress", tt.value)
			if tt.valid && err != nil {
				t.Errorf("expected %q to be valid, got: %v", tt.value, err)
			}
			if !tt.valid {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError for %q, got: %v", tt.value, err)
				}
				if vErr.Field != "recipientAddress" {
					t.Errorf("field = %q, want recipientAddress", vErr.Field)
				}
			}
		})
	}
}

func TestChecksumAddress(t *testing.T) {
	got := ChecksumAddress("0xffb6505912fce95b42be4860477201bb4e204e9f")
	want := "0xFfb6505912FCE95B42be4860477201bb4e204E9f"
	if got != want {
		t.Errorf("ChecksumAddress = %s, want %s", got, want)
	}
}

func TestInsertDeployment_Validate(t *testing.T) {
	valid := InsertDeployment{
		ContractAddress:  "0x2000000000000000000000000000000000000002",
		RecipientAddress: "0xFfb6505912FCE95B42be4860477201bb4e204E9f",
		DeployerAddress:  "0x3000000000000000000000000000000000000003",
		Network:          "sepolia",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid payload, got: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*InsertDeployment)
		field  string
	}{
		{"bad contract", func(d *InsertDeployment) { d.ContractAddress = "nope" }, "contractAddress"},
		{"bad recipient", func(d *InsertDeployment) { d.RecipientAddress = "0xNotAnAddress" }, "recipientAddress"},
		{"bad deployer", func(d *InsertDeployment) { d.DeployerAddress = "" }, "deployerAddress"},
		{"missing network", func(d *InsertDeployment) { d.Network = "" }, "network"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			var vErr *ValidationError
			if err := in.Validate(); !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got: %v", err)
			} else if vErr.Field != tt.field {
				t.Errorf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}
