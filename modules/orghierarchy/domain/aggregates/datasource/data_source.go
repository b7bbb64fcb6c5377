package datasource

import "strings"

// DataSource identifies the system a record originated from. The id doubles
// as the namespace prefix of composite organization ids.
type DataSource struct {
	id           string
	name         string
	userEditable bool
}

func New(id, name string) DataSource {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	return DataSource{id: id, name: name}
}

func Hydrate(id, name string, userEditable bool) DataSource {
	return DataSource{id: id, name: name, userEditable: userEditable}
}

func (d DataSource) ID() string { return d.id }

func (d DataSource) Name() string { return d.name }

func (d DataSource) UserEditable() bool { return d.userEditable }

func (d DataSource) IsZero() bool { return d.id == "" }
