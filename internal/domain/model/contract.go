package model

// Contract is an immutable snapshot of one health plan contract's measures.
type Contract struct {
	ID       string   `json:"id"`
	Name     string   `json:"contract_name"`
	Measures Measures `json:"measures"`
}

// ContractRef is the listing shape of a contract.
type ContractRef struct {
	ID   string `json:"id"`
	Name string `json:"contract_name"`
}

// Ref returns the listing shape of c.
func (c Contract) Ref() ContractRef {
	return ContractRef{ID: c.ID, Name: c.Name}
}
