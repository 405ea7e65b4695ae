package domain

// CreateParams carries the caller-supplied fields of a new project.
type CreateParams struct {
	Name          string
	Admins        []Pubkey
	Members       []Pubkey
	GithubEnabled bool
	JiraEnabled   bool
}

// Validate checks p for a project created by requester. Rules are applied in a fixed
// order so the first violated rule is the one reported.
func (p CreateParams) Validate(requester Pubkey) error {
	if len(p.Name) == 0 {
		return ErrEmptyProjectName
	}
	if len(p.Name) > MaxNameLen {
		return ErrNameTooLong
	}
	if len(p.Admins) == 0 {
		return ErrNoAdmins
	}
	if len(p.Admins) > MaxAdmins {
		return ErrTooManyAdmins
	}
	if len(p.Members) > MaxMembers {
		return ErrTooManyMembers
	}
	if err := ValidateAddresses(p.Admins); err != nil {
		return err
	}
	if err := ValidateAddresses(p.Members); err != nil {
		return err
	}
	if !contains(p.Admins, requester) {
		return ErrCreatorNotInAdmins
	}
	return nil
}

// ValidateAddresses rejects zero identities and duplicates within addrs.
// Entries are scanned in order; the first offending entry decides the error.
func ValidateAddresses(addrs []Pubkey) error {
	for i, addr := range addrs {
		if addr.IsZero() {
			return ErrZeroAddress
		}
		for _, other := range addrs[i+1:] {
			if addr == other {
				return ErrDuplicateAddress
			}
		}
	}
	return nil
}

func contains(addrs []Pubkey, id Pubkey) bool {
	for _, a := range addrs {
		if a == id {
			return true
		}
	}
	return false
}
