package snapshot

import (
	"encoding/json"

	"table-service/internal/domain"
)

// CurrentVersion of the persisted snapshot schema. Version 1 predates the
// custom-product registry and per-item destinations.
const CurrentVersion = 2

// Persisted is the durable per-device copy of the last applied snapshot.
// It only has to survive a reload on the same device, nothing more.
type Persisted struct {
	Version int           `json:"version"`
	Tables  domain.Tables `json:"tables"`
}

func Encode(tables domain.Tables) ([]byte, error) {
	return json.Marshal(Persisted{Version: CurrentVersion, Tables: tables})
}

// Decode parses a persisted snapshot, migrating older versions forward so
// in-flight orders are not lost across a schema change.
func Decode(b []byte) (domain.Tables, error) {
	var p Persisted
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	if p.Tables == nil {
		p.Tables = make(domain.Tables)
	}
	if p.Version < CurrentVersion {
		migrate(&p)
	}
	return p.Tables, nil
}

// migrate fills in the fields older schema versions did not carry.
func migrate(p *Persisted) {
	for id, t := range p.Tables {
		if t.CustomProducts == nil {
			t.CustomProducts = []domain.CustomProduct{}
		}
		for i := range t.Items {
			if t.Items[i].State == "" {
				t.Items[i].State = domain.StatePending
			}
			if t.Items[i].Destination == "" {
				t.Items[i].Destination = domain.DestKitchen
			}
		}
		p.Tables[id] = t
	}
	p.Version = CurrentVersion
}
