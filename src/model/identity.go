package model

// Identity is the opaque owner of a ledger. The zero value is unresolved.
type Identity struct {
	Tenant    string `json:"tenant"`
	UserID    string `json:"user_id"`
	Anonymous bool   `json:"anonymous"`
}

func (i Identity) Resolved() bool {
	return i.Tenant != "" && i.UserID != ""
}

// Key identifies the ledger of this identity.
func (i Identity) Key() string {
	return i.Tenant + "/" + i.UserID
}
