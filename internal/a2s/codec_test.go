package a2s

import "testing"

func TestReaderWriter_CString(t *testing.T) {
	w := NewWriter()
	w.WriteCString("hello")
	r := NewReader(w.Bytes())
	s, err := r.ReadCString()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if s != "hello" {
		t.Fatalf("got %q", s)
	}
	if r.Remaining() != 0 {
		t.Fatalf("remaining=%d", r.Remaining())
	}
}

func TestReader_CStringUnterminated(t *testing.T) {
	r := NewReader([]byte{'h', 'i'})
	if _, err := r.ReadCString(); err == nil {
		t.Fatalf("expected error for unterminated string")
	}
}

func TestReaderWriter_Int32RoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteInt32LE(-12345)
	r := NewReader(w.Bytes())
	v, err := r.ReadInt32LE()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if v != -12345 {
		t.Fatalf("got %d", v)
	}
}

func TestReaderWriter_Float32RoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteFloat32LE(3.5)
	r := NewReader(w.Bytes())
	v, err := r.ReadFloat32LE()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if v != 3.5 {
		t.Fatalf("got %v", v)
	}
}

func TestReader_ExhaustedBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.ReadInt32LE(); err == nil {
		t.Fatalf("expected ErrBufferExhausted")
	}
}
