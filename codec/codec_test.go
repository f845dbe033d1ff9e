package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shardEntry struct {
	Blob     string `json:"blob"`
	Rows     int    `json:"rows"`
	Checksum uint32 `json:"checksum"`
}

type manifest struct {
	RunID  string       `json:"run_id"`
	Dim    int          `json:"dim"`
	Shards []shardEntry `json:"shards"`
}

func TestCodecs_Interchangeable(t *testing.T) {
	in := manifest{
		RunID: "run-1",
		Dim:   300,
		Shards: []shardEntry{
			{Blob: "shard-0000-of-0002.rows", Rows: 10, Checksum: 0xdeadbeef},
			{Blob: "shard-0001-of-0002.rows", Rows: 12, Checksum: 1},
		},
	}

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			data := MustMarshal(c, in)

			// Every codec must read what every other codec writes.
			for _, other := range Names() {
				oc, _ := ByName(other)
				var out manifest
				require.NoError(t, oc.Unmarshal(data, &out))
				assert.Equal(t, in, out)
			}
		})
	}
}

func TestByName_Unknown(t *testing.T) {
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "go-json", Default.Name())
}

func TestMustMarshal_Panics(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}
