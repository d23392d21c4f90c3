package services

import (
	"board-lab/domain"
	boarderrors "board-lab/errors"
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func chunkOf(fileID string, index, total int, last bool, data []byte) domain.FileChunk {
	return domain.FileChunk{
		FileID:     fileID,
		FileName:   "report.pdf",
		FileType:   "pdf",
		UploaderID: "alice",
		Index:      index,
		Total:      total,
		Last:       last,
		Data:       data,
	}
}

func TestFileAccumulator_Reassembles_Chunks_Arriving_Out_Of_Order(t *testing.T) {
	req := require.New(t)
	accumulator, err := NewFileAccumulator(t.TempDir())
	req.NoError(err)

	fileID := uuid.NewString()
	payload := bytes.Repeat([]byte("abcdefgh"), 1000)
	parts := [][]byte{payload[:3000], payload[3000:6500], payload[6500:]}

	// When chunks are staged in a shuffled order
	req.NoError(accumulator.Stage(chunkOf(fileID, 2, 3, true, parts[2])))
	req.NoError(accumulator.Stage(chunkOf(fileID, 0, 3, false, parts[0])))
	req.NoError(accumulator.Stage(chunkOf(fileID, 1, 3, false, parts[1])))
	req.Equal(1, accumulator.Pending())

	// Then the assembled payload is byte for byte the original
	assembled, err := accumulator.Assemble(fileID, 3)
	req.NoError(err)
	req.Equal(payload, assembled)

	accumulator.Cleanup(fileID, 3)
	req.Equal(0, accumulator.Pending())
}

func TestFileAccumulator_Missing_Chunk_Fails_And_Commits_Nothing(t *testing.T) {
	req := require.New(t)
	accumulator, err := NewFileAccumulator(t.TempDir())
	req.NoError(err)

	fileID := uuid.NewString()

	// Given chunk 1 of 3 never arrived
	req.NoError(accumulator.Stage(chunkOf(fileID, 0, 3, false, []byte("first"))))
	req.NoError(accumulator.Stage(chunkOf(fileID, 2, 3, true, []byte("third"))))

	// When assembly is attempted
	assembled, err := accumulator.Assemble(fileID, 3)

	// Then it is a hard failure and the staged parts stay in place
	req.ErrorIs(err, boarderrors.ErrMissingChunk)
	req.Nil(assembled)
	req.Equal(1, accumulator.Pending())
}

func TestFileAccumulator_Assemble_Unknown_Upload_Fails(t *testing.T) {
	req := require.New(t)
	accumulator, err := NewFileAccumulator(t.TempDir())
	req.NoError(err)

	_, err = accumulator.Assemble(uuid.NewString(), 2)
	req.ErrorIs(err, boarderrors.ErrUnknownUpload)
}

func TestFileAccumulator_Hostile_File_Id_Stays_Inside_The_Staging_Directory(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	accumulator, err := NewFileAccumulator(dir)
	req.NoError(err)

	// A traversal attempt is flattened into a plain staged file
	hostile := "../../etc/passwd"
	req.NoError(accumulator.Stage(chunkOf(hostile, 0, 1, true, []byte("data"))))

	assembled, err := accumulator.Assemble(hostile, 1)
	req.NoError(err)
	req.Equal([]byte("data"), assembled)
	accumulator.Cleanup(hostile, 1)
}
