package signing

import (
	"net/url"
	"testing"
	"time"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	s := New("creative-secret")
	signed := s.Sign("https://cdn.example.com/creatives/a1.mp4", "user-1", time.Now().Add(10*time.Minute))

	if !s.Verify(signed.URL, signed.UID, signed.Exp, signed.Sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerify_Expired(t *testing.T) {
	s := New("creative-secret")
	signed := s.Sign("https://cdn.example.com/creatives/a1.mp4", "user-1", time.Now().Add(-time.Minute))

	if s.Verify(signed.URL, signed.UID, signed.Exp, signed.Sig) {
		t.Fatal("expected expired signature to fail")
	}
}

func TestVerify_TamperedURL(t *testing.T) {
	s := New("creative-secret")
	signed := s.Sign("https://cdn.example.com/creatives/a1.mp4", "user-1", time.Now().Add(10*time.Minute))

	if s.Verify("https://cdn.example.com/creatives/other.mp4", signed.UID, signed.Exp, signed.Sig) {
		t.Fatal("expected tampered URL to fail verification")
	}
}

func TestVerify_WrongUser(t *testing.T) {
	s := New("creative-secret")
	signed := s.Sign("https://cdn.example.com/creatives/a1.mp4", "user-1", time.Now().Add(10*time.Minute))

	if s.Verify(signed.URL, "user-2", signed.Exp, signed.Sig) {
		t.Fatal("expected wrong uid to fail verification")
	}
}

func TestBuildAndExtractSignedURL(t *testing.T) {
	s := New("creative-secret")
	signed := s.Sign("https://cdn.example.com/creatives/a1.mp4", "user-1", time.Now().Add(10*time.Minute))

	full, err := BuildSignedURL("https://ads.vodstream.app/creative", signed)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	u, err := url.Parse(full)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rawURL, uid, exp, sig, err := ExtractSigned(u.Query())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rawURL != signed.URL || uid != signed.UID || exp != signed.Exp || sig != signed.Sig {
		t.Fatal("extracted params do not match signed values")
	}
	if !s.Verify(rawURL, uid, exp, sig) {
		t.Fatal("expected extracted params to verify")
	}
}

func TestExtractSigned_MissingParams(t *testing.T) {
	if _, _, _, _, err := ExtractSigned(url.Values{}); err == nil {
		t.Fatal("expected error for missing params")
	}
}
