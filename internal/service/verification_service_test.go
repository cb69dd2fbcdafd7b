package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"certhub/internal/dto"
	"certhub/internal/model"
)

func TestVerify_Valid(t *testing.T) {
	f := newFixture(t)
	f.createTemplate(t, nil, true)
	cert := f.generate(t, candAlice, courseGo)

	res, err := f.svc.Verification.Verify(context.Background(), "  "+cert.CertificateNumber+" ")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Valid || res.Status != model.StatusIssued {
		t.Errorf("expected valid ISSUED, got %+v", res)
	}
	if res.SignatureKeyID != "k1" {
		t.Errorf("key id = %q", res.SignatureKeyID)
	}
	if res.CourseCode != "GO-101" || res.Grade != "A" {
		t.Errorf("unexpected details %+v", res)
	}
	if res.VerifiedAt != "2026-03-01T10:00:00Z" {
		t.Errorf("verified_at = %q", res.VerifiedAt)
	}
}

func TestVerify_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Verification.Verify(context.Background(), "CERT-2026-999999")
	assertKind(t, err, ErrCertificateNotFound)
}

func TestVerify_TamperDetected(t *testing.T) {
	cases := []struct {
		name string
		sql  string
	}{
		{"grade", "UPDATE certificates SET grade = 'A+' WHERE certificate_number = ?"},
		{"candidate", "UPDATE certificates SET candidate_id = '0b6f6a2e-7c4e-4d0f-9a51-1d7f3c0a0002' WHERE certificate_number = ?"},
		{"content", `UPDATE certificates SET resolved_content = '{"header":"x","body":"forged","footer":""}' WHERE certificate_number = ?`},
		{"candidate name", "UPDATE certificates SET candidate_name = 'Mallory Forger' WHERE certificate_number = ?"},
		{"course name", "UPDATE certificates SET course_name = 'PhD Physics' WHERE certificate_number = ?"},
		{"course code", "UPDATE certificates SET course_code = 'PHY-900' WHERE certificate_number = ?"},
		{"remarks", "UPDATE certificates SET remarks = 'Top of class' WHERE certificate_number = ?"},
		{"expiry pushed back", "UPDATE certificates SET expiry_date = ? WHERE certificate_number = ?"},
		{"expiry removed", "UPDATE certificates SET expiry_date = NULL WHERE certificate_number = ?"},
		{"signature", "UPDATE certificates SET digital_signature = 'k1:AAAA' WHERE certificate_number = ?"},
		{"unknown key", "UPDATE certificates SET digital_signature = 'k9:' || substr(digital_signature, 4) WHERE certificate_number = ?"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.createTemplate(t, nil, true)
			cert, err := f.svc.Generator.Generate(context.Background(), candAlice, courseGo, nil,
				dto.GenerateOptions{Grade: "A", ExpiryDate: "2027-03-01"}, adminID)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}

			args := []interface{}{cert.CertificateNumber}
			if strings.Count(tc.sql, "?") == 2 {
				args = append([]interface{}{time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)}, args...)
			}
			if err := f.db.Exec(tc.sql, args...).Error; err != nil {
				t.Fatalf("tamper: %v", err)
			}
			_, err = f.svc.Verification.Verify(context.Background(), cert.CertificateNumber)
			assertKind(t, err, ErrTamperDetected)
		})
	}
}

func TestVerify_StatusIsNotSigned(t *testing.T) {
	f := newFixture(t)
	f.createTemplate(t, nil, true)
	ctx := context.Background()
	cert := f.generate(t, candAlice, courseGo)

	if _, err := f.svc.Registry.Revoke(ctx, cert.ID, "fraud", adminID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	res, err := f.svc.Verification.Verify(ctx, cert.CertificateNumber)
	if err != nil {
		t.Fatalf("verify revoked: %v", err)
	}
	if res.Valid || res.Status != model.StatusRevoked || res.RevocationReason != "fraud" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.SupersededBy != "" {
		t.Errorf("superseded_by should be empty before reissue")
	}
}

func TestVerify_Expired(t *testing.T) {
	f := newFixture(t)
	f.createTemplate(t, nil, true)
	ctx := context.Background()

	cert, err := f.svc.Generator.Generate(ctx, candBob, courseK8s, nil, dto.GenerateOptions{ExpiryDate: "2026-06-01"}, adminID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	res, _ := f.svc.Verification.Verify(ctx, cert.CertificateNumber)
	if !res.Valid {
		t.Fatal("should be valid before expiry")
	}

	f.advance(100 * 24 * time.Hour)
	res, err = f.svc.Verification.Verify(ctx, cert.CertificateNumber)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Valid || res.Status != model.StatusExpired || res.ExpiryDate != "2026-06-01T00:00:00Z" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestVerify_ValidThroughExpiryInstant(t *testing.T) {
	f := newFixture(t)
	f.createTemplate(t, nil, true)
	ctx := context.Background()

	cert, err := f.svc.Generator.Generate(ctx, candBob, courseK8s, nil, dto.GenerateOptions{ExpiryDate: "2026-06-01"}, adminID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	f.setClock(expiry)
	res, err := f.svc.Verification.Verify(ctx, cert.CertificateNumber)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Valid || res.Status != model.StatusIssued {
		t.Errorf("at the expiry instant: valid=%v status=%s", res.Valid, res.Status)
	}

	f.setClock(expiry.Add(time.Second))
	res, _ = f.svc.Verification.Verify(ctx, cert.CertificateNumber)
	if res.Valid || res.Status != model.StatusExpired {
		t.Errorf("after expiry: valid=%v status=%s", res.Valid, res.Status)
	}
}
