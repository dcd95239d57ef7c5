package main

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/profiled/internal/convert"
	"github.com/and161185/profiled/internal/crypto/clientcrypto"
	"github.com/and161185/profiled/internal/model"
)

func Test_buildUpdate(t *testing.T) {
	t.Parallel()

	m, err := buildUpdate("Ann", "ignored", "red", map[string]bool{"name": true, "color": true})
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}
	if *m.Name != "Ann" || m.Handle != nil || *m.AccentColor != model.AccentRed {
		t.Fatalf("unexpected mutation: %+v", m)
	}

	if _, err := buildUpdate("Ann", "", "", map[string]bool{"name": true}); err == nil {
		t.Fatalf("missing color must fail")
	}
	if _, err := buildUpdate("", "x!", "red", map[string]bool{"handle": true, "color": true}); err == nil {
		t.Fatalf("bad handle must fail")
	}
	if _, err := buildUpdate("", "", "orange", map[string]bool{"color": true}); err == nil {
		t.Fatalf("bad color must fail")
	}
}

func Test_toRequest_RoundTrip(t *testing.T) {
	t.Parallel()

	name := "Ann"
	c := model.AccentPink
	req, err := toRequest(model.ProfileMutation{Name: &name, AccentColor: &c})
	if err != nil {
		t.Fatalf("toRequest: %v", err)
	}
	back, err := convert.MutationFromStruct(req)
	if err != nil || *back.Name != "Ann" || *back.AccentColor != model.AccentPink {
		t.Fatalf("round trip: %+v %v", back, err)
	}
}

func Test_parseStored(t *testing.T) {
	t.Parallel()

	b, _, err := clientcrypto.Enroll([]byte("pw"))
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	fields := map[string]any{convert.FieldAccentColor: "blue"}
	for k, v := range bundleJSON(b) {
		fields[k] = v
	}
	s, _ := structpb.NewStruct(fields)

	st, err := parseStored(s)
	if err != nil {
		t.Fatalf("parseStored: %v", err)
	}
	if !bytes.Equal(st.Salt, b.Salt) || !bytes.Equal(st.EncryptedPrivateKey, b.EncryptedPrivateKey) || st.AccentColor != model.AccentBlue {
		t.Fatalf("unexpected stored: %+v", st)
	}

	s.Fields[convert.FieldSalt] = structpb.NewStringValue("AAAA")
	if _, err := parseStored(s); err == nil {
		t.Fatalf("short salt must fail")
	}
}
