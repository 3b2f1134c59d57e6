package util

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDeriveAndVerifyPassword(t *testing.T) {
	hash, salt, err := DerivePassword("s3cret-pass")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(hash) != hashLength || len(salt) != saltLength {
		t.Fatalf("unexpected lengths hash=%d salt=%d", len(hash), len(salt))
	}
	if !VerifyPassword("s3cret-pass", salt, hash) {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword("wrong-pass", salt, hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestDerivePasswordUniqueSalts(t *testing.T) {
	_, saltA, err := DerivePassword("same")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	_, saltB, err := DerivePassword("same")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if bytes.Equal(saltA, saltB) {
		t.Fatal("expected distinct salts")
	}
}

func TestVerifyPasswordEmptyInputs(t *testing.T) {
	hash, salt, err := DerivePassword("abcdef")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if VerifyPassword("", salt, hash) {
		t.Fatal("empty password accepted")
	}
	if VerifyPassword("abcdef", nil, hash) {
		t.Fatal("empty salt accepted")
	}
	if VerifyPassword("abcdef", salt, nil) {
		t.Fatal("empty hash accepted")
	}
}

func TestValidateNewPassword(t *testing.T) {
	if err := ValidateNewPassword("abc"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := ValidateNewPassword(strings.Repeat("x", 201)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := ValidateNewPassword("abcdef"); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := ValidateNewPassword(strings.Repeat("x", 200)); err != nil {
		t.Fatalf("expected valid at upper bound, got %v", err)
	}
}
