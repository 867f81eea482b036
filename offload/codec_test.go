package offload

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/warpfield/render"
)

func TestCodec_RequestFrameOmitsPayload(t *testing.T) {
	req := RequestFrame{
		Seq:    42,
		Delta:  16 * time.Millisecond,
		Buffer: NewBuffer(300),
		Points: make([]render.Point, 10),
	}

	data, err := EncodeCommand(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"requestFrame","data":{"seq":42,"delta":16000000}}`, string(data))

	decoded, err := DecodeCommand(data)
	require.NoError(t, err)
	got, ok := decoded.(RequestFrame)
	require.True(t, ok)
	assert.Equal(t, uint64(42), got.Seq)
	assert.Nil(t, got.Buffer)
	assert.Nil(t, got.Points)
}

func TestCodec_InitCarriesConfig(t *testing.T) {
	cfg := testConfig()
	data, err := EncodeCommand(Init{Config: cfg})
	require.NoError(t, err)

	decoded, err := DecodeCommand(data)
	require.NoError(t, err)
	if diff := cmp.Diff(Init{Config: cfg}, decoded); diff != "" {
		t.Errorf("init mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_EmptyCommands(t *testing.T) {
	for _, cmd := range []Command{Reset{}, StopAnimation{}, Cleanup{}} {
		data, err := EncodeCommand(cmd)
		require.NoError(t, err)
		decoded, err := DecodeCommand(data)
		require.NoError(t, err)
		assert.Equal(t, cmd, decoded)
	}
}

func TestCodec_Replies(t *testing.T) {
	data, err := EncodeReply(Initialized{Success: false, Error: "bad depth"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"initialized","data":{"success":false,"error":"bad depth","capacity":0}}`, string(data))

	data, err = EncodeReply(StatsUpdate{Seq: 3, Skipped: 2, Running: true})
	require.NoError(t, err)
	r, err := DecodeReply(data)
	require.NoError(t, err)
	assert.Equal(t, StatsUpdate{Seq: 3, Skipped: 2, Running: true}, r)
}

func TestCodec_Errors(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"launch","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeReply([]byte(`{"type":"reset","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeCommand([]byte(`not json`))
	assert.Error(t, err)

	_, err = EncodeCommand(nil)
	assert.Error(t, err)

	assert.Equal(t, "setBoost", typeName(SetBoost{}))
	assert.Equal(t, "frameUpdate", typeName(FrameUpdate{}))
	assert.Equal(t, "int", typeName(3))
}
