package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		msgs []Message
	}{
		{"empty", []Message{}},
		{"nil", nil},
		{"conversation", []Message{User("ساعت کاری؟"), Bot("9-5"), User("thanks")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msgs)
			require.NoError(t, err)

			got, skipped, err := Decode(data)
			require.NoError(t, err)
			assert.Zero(t, skipped)
			assert.Equal(t, len(tt.msgs), len(got))
			for i := range tt.msgs {
				assert.Equal(t, tt.msgs[i], got[i])
			}
		})
	}
}

func TestEncode_NilIsEmptyArray(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecode_SkipsInvalidRecords(t *testing.T) {
	data := []byte(`[
		{"role":"user","text":"hi"},
		{"role":"system","text":"nope"},
		{"role":"bot","text":""},
		{"role":"bot","text":"hello"}
	]`)

	got, skipped, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []Message{User("hi"), Bot("hello")}, got)
}

func TestDecode_AcceptsTypeAsRole(t *testing.T) {
	data := []byte(`[
		{"type":"user","text":"ساعت کاری"},
		{"type":"bot","text":"9-5"},
		{"type":"system","text":"nope"},
		{"role":"user","type":"bot","text":"role wins"}
	]`)

	got, skipped, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []Message{User("ساعت کاری"), Bot("9-5"), User("role wins")}, got)

	// Re-encoding writes the current field name
	out, err := Encode(got[:1])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","text":"ساعت کاری"}]`, string(out))
}

func TestDecode_Malformed(t *testing.T) {
	_, _, err := Decode([]byte(`{"role":`))
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	orig := []Message{User("a")}
	cp := Clone(orig)
	cp[0].Text = "b"
	assert.Equal(t, "a", orig[0].Text)

	assert.NotNil(t, Clone(nil))
	assert.Empty(t, Clone(nil))
}
