// +build unit

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesserachain/tessera/common"
)

func TestAccountCodecRoundTrip(t *testing.T) {
	assert := assert.New(t)

	account := Account{
		Owner:   common.HexToAddress("a1"),
		Balance: 982451653,
		Data:    common.Bytes("hello"),
	}

	buf := EncodeAccount(account)
	assert.Equal(accountHeaderSize+5, len(buf))
	assert.Equal(byte(accountCodecVersion), buf[0])

	decoded, err := DecodeAccount(buf)
	assert.Nil(err)
	assert.Equal(account, decoded)

	// The decoded account must not alias the record buffer.
	buf[accountHeaderSize] = 'H'
	assert.Equal(common.Bytes("hello"), decoded.Data)
}

func TestAccountCodecEmptyData(t *testing.T) {
	assert := assert.New(t)

	account := Account{Owner: common.HexToAddress("b2"), Balance: 1}
	decoded, err := DecodeAccount(EncodeAccount(account))
	assert.Nil(err)
	assert.Equal(account.Owner, decoded.Owner)
	assert.Equal(account.Balance, decoded.Balance)
	assert.Equal(0, len(decoded.Data))
}

func TestAccountCodecErrors(t *testing.T) {
	assert := assert.New(t)

	account := Account{Owner: common.HexToAddress("c3"), Balance: 7, Data: common.Bytes("abcdef")}
	buf := EncodeAccount(account)

	_, err := DecodeAccount(buf[:10])
	assert.Equal(ErrInsufficientData, err)

	// A header promising more payload than the record carries.
	truncated := make(common.Bytes, accountHeaderSize+2)
	copy(truncated, buf)
	_, err = DecodeAccount(truncated)
	assert.Equal(ErrInvalidDataLength, err)

	versioned := make(common.Bytes, len(buf))
	copy(versioned, buf)
	versioned[0] = 99
	_, err = DecodeAccount(versioned)
	assert.Equal(ErrUnknownCodecVersion, err)
}
