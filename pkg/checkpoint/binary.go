package checkpoint

import (
	"encoding/binary"
	"hash/crc32"
	"os"

	"github.com/XiaoConstantine/evogo/pkg/errors"
)

const (
	binaryMagic   uint32 = 0x4556474F // "EVGO"
	binaryVersion uint16 = 1

	// magic(4) + version(2) + payload length(8)
	headerSize  = 14
	trailerSize = 4
)

// EncodeBinary frames the snapshot as magic | version | length | JSON payload
// | CRC-32 of the payload. The trailer lets a reader reject torn or corrupted
// files before parsing.
func (s *Snapshot) EncodeBinary() ([]byte, error) {
	payload, err := s.EncodeJSON()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, headerSize+len(payload)+trailerSize)
	binary.BigEndian.PutUint32(buf[0:4], binaryMagic)
	binary.BigEndian.PutUint16(buf[4:6], binaryVersion)
	binary.BigEndian.PutUint64(buf[6:14], uint64(len(payload)))
	copy(buf[headerSize:], payload)
	binary.BigEndian.PutUint32(buf[headerSize+len(payload):], crc32.ChecksumIEEE(payload))

	return buf, nil
}

// DecodeBinary parses and verifies a framed snapshot.
func DecodeBinary(data []byte) (*Snapshot, error) {
	if len(data) < headerSize+trailerSize {
		return nil, errors.New(errors.CheckpointCorrupt, "checkpoint shorter than header")
	}

	if magic := binary.BigEndian.Uint32(data[0:4]); magic != binaryMagic {
		return nil, errors.WithFields(
			errors.New(errors.CheckpointCorrupt, "bad checkpoint magic"),
			errors.Fields{"magic": magic},
		)
	}
	if version := binary.BigEndian.Uint16(data[4:6]); version != binaryVersion {
		return nil, errors.WithFields(
			errors.New(errors.CheckpointCorrupt, "unsupported checkpoint version"),
			errors.Fields{"version": version},
		)
	}

	length := binary.BigEndian.Uint64(data[6:14])
	if uint64(len(data)) != headerSize+length+trailerSize {
		return nil, errors.WithFields(
			errors.New(errors.CheckpointCorrupt, "checkpoint length mismatch"),
			errors.Fields{"declared": length, "actual": len(data) - headerSize - trailerSize},
		)
	}

	payload := data[headerSize : headerSize+length]
	want := binary.BigEndian.Uint32(data[headerSize+length:])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return nil, errors.WithFields(
			errors.New(errors.CheckpointCorrupt, "checkpoint checksum mismatch"),
			errors.Fields{"want": want, "got": got},
		)
	}

	return DecodeJSON(payload)
}

// SaveFile writes the snapshot to disk in the framed binary format.
func (s *Snapshot) SaveFile(path string) error {
	data, err := s.EncodeBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to write checkpoint file")
	}
	return nil
}

// LoadFile reads and verifies a framed binary snapshot from disk.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CheckpointNotFound, "checkpoint file not found")
		}
		return nil, errors.Wrap(err, errors.Unknown, "failed to read checkpoint file")
	}
	return DecodeBinary(data)
}
