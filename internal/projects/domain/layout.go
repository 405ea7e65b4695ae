package domain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var errShortRecord = errors.New("record truncated")

// MarshalBinary encodes the record in its persisted layout: little-endian, u32 length
// prefixes for the name and both identity lists, fixed-width identities.
func (p *Project) MarshalBinary() ([]byte, error) {
	if len(p.Name) > MaxNameLen || len(p.Admins) > MaxAdmins || len(p.Members) > MaxMembers {
		return nil, fmt.Errorf("encode project %q: field exceeds persisted bounds", p.Name)
	}

	size := 4 + len(p.Name) + PubkeySize + 4 + len(p.Admins)*PubkeySize +
		4 + len(p.Members)*PubkeySize + 2 + 8 + 2 + 8
	buf := make([]byte, 0, size)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Name)))
	buf = append(buf, p.Name...)
	buf = append(buf, p.Creator[:]...)
	buf = appendKeys(buf, p.Admins)
	buf = appendKeys(buf, p.Members)
	buf = append(buf, boolByte(p.GithubEnabled), boolByte(p.JiraEnabled))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.CreatedAt.Unix()))
	buf = append(buf, p.TasksCompleted, p.TotalTasks)
	buf = binary.LittleEndian.AppendUint64(buf, p.TreasuryBalance)
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (p *Project) UnmarshalBinary(data []byte) error {
	r := reader{buf: data}

	nameLen := r.u32()
	if nameLen > MaxNameLen {
		return fmt.Errorf("decode project: name length %d exceeds %d", nameLen, MaxNameLen)
	}
	name := r.bytes(int(nameLen))
	creator := r.key()
	admins := r.keys(MaxAdmins)
	members := r.keys(MaxMembers)
	github := r.u8()
	jira := r.u8()
	createdAt := int64(r.u64())
	tasks := r.u8()
	total := r.u8()
	balance := r.u64()
	if r.err != nil {
		return fmt.Errorf("decode project: %w", r.err)
	}
	if len(r.buf) != 0 {
		return fmt.Errorf("decode project: %d trailing bytes", len(r.buf))
	}

	*p = Project{
		Name:            string(name),
		Creator:         creator,
		Admins:          admins,
		Members:         members,
		GithubEnabled:   github != 0,
		JiraEnabled:     jira != 0,
		CreatedAt:       time.Unix(createdAt, 0).UTC(),
		TasksCompleted:  tasks,
		TotalTasks:      total,
		TreasuryBalance: balance,
	}
	return nil
}

func appendKeys(buf []byte, keys []Pubkey) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		buf = append(buf, k[:]...)
	}
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// reader consumes a byte slice, latching the first error.
type reader struct {
	buf []byte
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = errShortRecord
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *reader) u8() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) key() Pubkey {
	var k Pubkey
	copy(k[:], r.bytes(PubkeySize))
	return k
}

func (r *reader) keys(max int) []Pubkey {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	if int(n) > max {
		r.err = fmt.Errorf("list length %d exceeds %d", n, max)
		return nil
	}
	out := make([]Pubkey, 0, n)
	for i := 0; i < int(n); i++ {
		out = append(out, r.key())
	}
	return out
}
