// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base64

import (
	"bytes"
	"io"
	"testing"
)

const (
	data    = "5WBIS6whUU/Zuo9o0hqawcHAv8SZcxd9NzA79tEUcCI="
	urlData = "5WBIS6whUU_Zuo9o0hqawcHAv8SZcxd9NzA79tEUcCI"
)

func TestBase64Function(t *testing.T) {
	dec, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if data != Encode(dec) {
		t.Fatal("encodings differ")
	}
}

func TestBase64URL(t *testing.T) {
	dec, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if EncodeURL(dec) != urlData {
		t.Errorf("EncodeURL() = %s != %s", EncodeURL(dec), urlData)
	}
	urlDec, err := DecodeURL(urlData)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, urlDec) {
		t.Error("decodings differ")
	}
	if _, err := DecodeURL(data); err == nil {
		t.Error("padded standard encoding should not decode")
	}
}

func TestBase64Coder(t *testing.T) {
	r := NewDecoder(bytes.NewBufferString(data))
	dec, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)
	if _, err := encoder.Write(dec); err != nil {
		t.Fatal(err)
	}
	encoder.Close()
	if data != buf.String() {
		t.Fatal("encodings differ")
	}
}
