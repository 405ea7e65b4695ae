package domain

import "crypto/sha256"

// ProjectSeed is the constant tag mixed into every project identifier.
const ProjectSeed = "project"

// DeriveProjectID maps (name, creator) to the identifier the project record lives at.
// The name is length-prefixed so distinct (name, creator) pairs never share an input.
func DeriveProjectID(name string, creator Pubkey) Pubkey {
	h := sha256.New()
	h.Write([]byte(ProjectSeed))
	h.Write([]byte{byte(len(ProjectSeed))})
	h.Write(lengthPrefix(len(name)))
	h.Write([]byte(name))
	h.Write(creator[:])

	var id Pubkey
	copy(id[:], h.Sum(nil))
	return id
}

func lengthPrefix(n int) []byte {
	return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}
