package solrand

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Anchor account discriminators.
var (
	RequesterDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "Requester")
	VaultDiscriminator     = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "Vault")
)

// RequestAccount is the decoded on-chain requester record.
type RequestAccount struct {
	Address solana.PublicKey

	Authority     solana.PublicKey
	Oracle        solana.PublicKey
	CreatedAt     int64
	Count         uint64
	LastUpdated   int64
	Random        [RandomSize]byte
	PktID         [PktIDSize]byte
	TLSID         [TLSIDSize]byte
	ActiveRequest bool
	// RequestID is only stored by generations that seed on it.
	RequestID uint64
	Bump      uint8

	// Lamports held by the account.
	Lamports uint64
}

// CreatedTime returns CreatedAt as a time.
func (r *RequestAccount) CreatedTime() time.Time { return time.Unix(r.CreatedAt, 0) }

// LastUpdatedTime returns LastUpdated as a time.
func (r *RequestAccount) LastUpdatedTime() time.Time { return time.Unix(r.LastUpdated, 0) }

// VaultAccount is the decoded fee vault of vault generations.
type VaultAccount struct {
	Address   solana.PublicKey
	Requester solana.PublicKey
	Bump      uint8
	Lamports  uint64
}

// requesterFields is the part of the requester layout shared by all
// generations, in declaration order.
type requesterFields struct {
	Authority     solana.PublicKey
	Oracle        solana.PublicKey
	CreatedAt     int64
	Count         uint64
	LastUpdated   int64
	Random        [RandomSize]byte
	PktID         [PktIDSize]byte
	TLSID         [TLSIDSize]byte
	ActiveRequest bool
}

// ParseRequestAccount decodes requester account data for the given generation.
func ParseRequestAccount(data []byte, gen Generation) (*RequestAccount, error) {
	if len(data) < DiscriminatorSize || !bytes.Equal(data[:DiscriminatorSize], RequesterDiscriminator[:]) {
		return nil, fmt.Errorf("%w: not a requester account", ErrInvalidAccountData)
	}

	dec := bin.NewBorshDecoder(data[DiscriminatorSize:])
	var f requesterFields
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode requester: %w", err)
	}
	acc := &RequestAccount{
		Authority:     f.Authority,
		Oracle:        f.Oracle,
		CreatedAt:     f.CreatedAt,
		Count:         f.Count,
		LastUpdated:   f.LastUpdated,
		Random:        f.Random,
		PktID:         f.PktID,
		TLSID:         f.TLSID,
		ActiveRequest: f.ActiveRequest,
	}

	var err error
	if gen.RequestIDSeed {
		if acc.RequestID, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return nil, fmt.Errorf("decode requester request id: %w", err)
		}
	}
	if acc.Bump, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("decode requester bump: %w", err)
	}
	return acc, nil
}

// EncodeRequestAccount serializes a requester the way the given generation
// stores it. The data is zero-padded to RequestAccountSize.
func EncodeRequestAccount(acc *RequestAccount, gen Generation) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(RequesterDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	f := requesterFields{
		Authority:     acc.Authority,
		Oracle:        acc.Oracle,
		CreatedAt:     acc.CreatedAt,
		Count:         acc.Count,
		LastUpdated:   acc.LastUpdated,
		Random:        acc.Random,
		PktID:         acc.PktID,
		TLSID:         acc.TLSID,
		ActiveRequest: acc.ActiveRequest,
	}
	if err := enc.Encode(&f); err != nil {
		return nil, fmt.Errorf("encode requester: %w", err)
	}
	if gen.RequestIDSeed {
		if err := enc.WriteUint64(acc.RequestID, binary.LittleEndian); err != nil {
			return nil, fmt.Errorf("encode requester request id: %w", err)
		}
	}
	if err := enc.WriteUint8(acc.Bump); err != nil {
		return nil, fmt.Errorf("encode requester bump: %w", err)
	}
	for buf.Len() < RequestAccountSize(gen) {
		buf.WriteByte(0)
	}
	return buf.Bytes(), nil
}

// RequestAccountSize is the allocated size of a requester for gen: the
// discriminator plus the in-memory size of the program's struct, which is
// rounded up to its 8-byte alignment. Use it for dataSize filters.
func RequestAccountSize(gen Generation) int {
	size := activeRequestOffset + 1
	if gen.RequestIDSeed {
		size += 8
	}
	size++
	for (size-DiscriminatorSize)%8 != 0 {
		size++
	}
	return size
}

// ParseVaultAccount decodes vault account data.
func ParseVaultAccount(data []byte) (*VaultAccount, error) {
	if len(data) < DiscriminatorSize || !bytes.Equal(data[:DiscriminatorSize], VaultDiscriminator[:]) {
		return nil, fmt.Errorf("%w: not a vault account", ErrInvalidAccountData)
	}
	dec := bin.NewBorshDecoder(data[DiscriminatorSize:])
	v := &VaultAccount{}
	if err := dec.Decode(&v.Requester); err != nil {
		return nil, fmt.Errorf("decode vault: %w", err)
	}
	bump, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("decode vault bump: %w", err)
	}
	v.Bump = bump
	return v, nil
}

// EncodeVaultAccount serializes a vault.
func EncodeVaultAccount(v *VaultAccount) []byte {
	out := make([]byte, 0, VaultAccountSize)
	out = append(out, VaultDiscriminator[:]...)
	out = append(out, v.Requester.Bytes()...)
	return append(out, v.Bump)
}

// VaultAccountSize is the allocated size of a vault.
const VaultAccountSize = DiscriminatorSize + 32 + 1
