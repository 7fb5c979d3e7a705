package transport

import (
	"errors"
	"testing"

	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_SampleBatches(t *testing.T) {
	data, err := Encode(ComplexMessage([]complex128{1 + 2i, -3i}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"sample","complex":[{"real":1,"imag":2},{"real":0,"imag":-3}]}`, string(data))

	m, err := Decode(data)
	require.NoError(t, err)
	c, err := Batch[complex128](m)
	require.NoError(t, err)
	assert.Equal(t, []complex128{1 + 2i, -3i}, c)

	_, err = m.RealBatch()
	assert.True(t, types.IsProtocolViolation(err), "complex batch read as real")

	r, err := Batch[float64](RealMessage([]float64{0.5, 1.5}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, r)

	_, err = Message{Type: KindSample}.RealBatch()
	assert.True(t, types.IsProtocolViolation(err), "empty sample message")

	_, err = EndMessage().ComplexBatch()
	assert.True(t, types.IsProtocolViolation(err))
}

func TestDecode_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"type":`},
		{"unknown kind", `{"type":"bogus"}`},
		{"config without request", `{"type":"config"}`},
		{"info without answer", `{"type":"info"}`},
		{"wrong field type", `{"type":"sample","real":"1,2"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.True(t, types.IsProtocolViolation(err))
		})
	}
}

func TestMessage_ConfigAndInfo(t *testing.T) {
	req, err := session.NewConfig(session.OpServiceChoice, session.ServiceChoice{ServiceChoice: "cexp"})
	require.NoError(t, err)

	data, err := Encode(ConfigMessage(req))
	require.NoError(t, err)
	m, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, session.OpServiceChoice, m.Config.Operation)
	assert.JSONEq(t, `{"service_choice":"cexp"}`, string(m.Config.Parameters))

	data, err = Encode(InfoMessage(session.Info{Alert: "nope", Code: types.ErrUnknownGenerator}))
	require.NoError(t, err)
	m, err = Decode(data)
	require.NoError(t, err)
	assert.True(t, types.IsErrorCode(m.Info.Err(), types.ErrUnknownGenerator))
}

func TestErrorMessage(t *testing.T) {
	m := ErrorMessage(types.NewError(types.ErrInvalidState, "session not configured"))
	assert.Equal(t, "session not configured", m.Error)
	err := m.Err()
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidState))

	m = ErrorMessage(errors.New("disk on fire"))
	assert.True(t, types.IsErrorCode(m.Err(), types.ErrTransport))

	assert.NoError(t, EndMessage().Err())
}
