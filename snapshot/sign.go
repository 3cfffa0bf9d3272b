package snapshot

import (
	"crypto/ecdsa"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signed is an encoded export with the signature of the server that made it.
type Signed struct {
	Data      []byte `json:"data"`
	Signature string `json:"signature"`
	Signer    string `json:"signer"`
}

// Sign signs the Keccak256 hash of the given data.
func Sign(data []byte, key *ecdsa.PrivateKey) (Signed, error) {
	signature, err := crypto.Sign(crypto.Keccak256Hash(data).Bytes(), key)
	if err != nil {
		return Signed{}, errors.New("signing snapshot failed").Wrap(err)
	}

	return Signed{
		Data:      data,
		Signature: hexutil.Encode(signature),
		Signer:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

// SignExport encodes and signs an export.
func SignExport(e Export, key *ecdsa.PrivateKey) (Signed, error) {
	return Sign(e.Marshal(), key)
}

// Verify checks that the snapshot was signed by its signer. When trusted
// addresses are given, the signer must be one of them.
func Verify(s Signed, trusted ...string) error {
	signature, err := hexutil.Decode(s.Signature)
	if err != nil {
		return errors.New("decoding snapshot signature failed").
			WithType(ErrTypeInvalidSignature).
			Wrap(err)
	}

	pub, err := crypto.SigToPub(crypto.Keccak256Hash(s.Data).Bytes(), signature)
	if err != nil {
		return errors.New("recovering snapshot signer failed").
			WithType(ErrTypeInvalidSignature).
			Wrap(err)
	}

	signer := crypto.PubkeyToAddress(*pub)
	if !common.IsHexAddress(s.Signer) || common.HexToAddress(s.Signer) != signer {
		return errors.New("snapshot signer mismatch").
			WithType(ErrTypeInvalidSignature).
			WithTag("signer", s.Signer).
			WithTag("recovered", signer.Hex())
	}

	if len(trusted) == 0 {
		return nil
	}
	for _, t := range trusted {
		if strings.EqualFold(t, signer.Hex()) {
			return nil
		}
	}
	return errors.New("snapshot signer is not trusted").
		WithType(ErrTypeInvalidSignature).
		WithTag("signer", signer.Hex())
}

// Open verifies and decodes a signed snapshot.
func Open(s Signed, trusted ...string) (Export, error) {
	if err := Verify(s, trusted...); err != nil {
		return Export{}, err
	}
	return Unmarshal(s.Data)
}
