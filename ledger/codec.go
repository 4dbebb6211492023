package ledger

import (
	"encoding/binary"
	"errors"

	"github.com/tesserachain/tessera/common"
)

// Account records are persisted in a fixed little-endian layout so readers can
// decode the header without copying:
//
//	[version: u8][owner: 32][balance: u64][dataLen: u32][data: dataLen]
const (
	accountCodecVersion = 1

	accountHeaderSize = 1 + common.AddressLength + 8 + 4
)

var (
	// ErrInsufficientData is returned when a record is shorter than its header.
	ErrInsufficientData = errors.New("InsufficientData")
	// ErrInvalidDataLength is returned when the header promises more payload
	// bytes than the record carries.
	ErrInvalidDataLength = errors.New("InvalidDataLength")
	// ErrUnknownCodecVersion is returned for records written by a newer codec.
	ErrUnknownCodecVersion = errors.New("UnknownCodecVersion")
)

// EncodeAccount serializes an account into the fixed record layout.
func EncodeAccount(account Account) common.Bytes {
	buf := make(common.Bytes, accountHeaderSize+len(account.Data))
	buf[0] = accountCodecVersion
	copy(buf[1:], account.Owner.Bytes())
	binary.LittleEndian.PutUint64(buf[1+common.AddressLength:], account.Balance)
	binary.LittleEndian.PutUint32(buf[1+common.AddressLength+8:], uint32(len(account.Data)))
	copy(buf[accountHeaderSize:], account.Data)
	return buf
}

// DecodeAccount parses a record produced by EncodeAccount. The returned
// account owns its data slice.
func DecodeAccount(buf common.Bytes) (Account, error) {
	if len(buf) < accountHeaderSize {
		return Account{}, ErrInsufficientData
	}
	if buf[0] != accountCodecVersion {
		return Account{}, ErrUnknownCodecVersion
	}

	account := Account{
		Owner:   common.BytesToAddress(buf[1 : 1+common.AddressLength]),
		Balance: binary.LittleEndian.Uint64(buf[1+common.AddressLength:]),
	}

	dataLen := binary.LittleEndian.Uint32(buf[1+common.AddressLength+8:])
	if uint32(len(buf)-accountHeaderSize) < dataLen {
		return Account{}, ErrInvalidDataLength
	}
	account.Data = make(common.Bytes, dataLen)
	copy(account.Data, buf[accountHeaderSize:accountHeaderSize+int(dataLen)])
	return account, nil
}
