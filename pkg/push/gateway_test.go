package push

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkTokens(t *testing.T) {
	tokens := make([]string, 7)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%d", i)
	}

	chunks := ChunkTokens(tokens, 3)

	assert.Len(t, chunks, 3)
	assert.Equal(t, []string{"token-0", "token-1", "token-2"}, chunks[0])
	assert.Equal(t, []string{"token-6"}, chunks[2])
}

func TestChunkTokensExactMultiple(t *testing.T) {
	chunks := ChunkTokens([]string{"a", "b", "c", "d"}, 2)

	assert.Len(t, chunks, 2)
	assert.Equal(t, []string{"c", "d"}, chunks[1])
}

func TestChunkTokensEmpty(t *testing.T) {
	assert.Nil(t, ChunkTokens(nil, 10))
	assert.Nil(t, ChunkTokens([]string{"a"}, 0))
}
