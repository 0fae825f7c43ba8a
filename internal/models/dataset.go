// Package models defines data structures shared by the harvester stages.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a catalog identifier. The catalog serves ids as strings, but some
// mirrors and fixtures use bare numbers, so both are accepted.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode id: %w", err)
		}

		*id = ID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to decode id: %w", err)
	}

	*id = ID(n.String())

	return nil
}

// String returns the id as a plain string.
func (id ID) String() string {
	return string(id)
}

// Organization is the publishing organization of a dataset.
type Organization struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Owner is the individual publisher of a dataset without organization.
type Owner struct {
	ID        ID     `json:"id"`
	Slug      string `json:"slug"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Resource is a single downloadable file referenced by a dataset.
type Resource struct {
	ID     ID     `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Format string `json:"format"`
}

// Dataset is a catalog entry grouping one or more resources.
type Dataset struct {
	Organization *Organization `json:"organization"`
	Owner        *Owner        `json:"owner"`
	ID           ID            `json:"id"`
	Slug         string        `json:"slug"`
	Title        string        `json:"title"`
	Resources    []Resource    `json:"resources"`
}

// IsOrphan reports whether the dataset has neither organization nor owner.
// An empty object or one without a slug counts as absent.
func (d *Dataset) IsOrphan() bool {
	return d.Publisher() == ""
}

// Publisher returns the organization slug, or the owner slug as fallback.
func (d *Dataset) Publisher() string {
	if d.Organization != nil && d.Organization.Slug != "" {
		return d.Organization.Slug
	}

	if d.Owner != nil && d.Owner.Slug != "" {
		return d.Owner.Slug
	}

	return ""
}

// CatalogPage is one page of the catalog dataset listing.
type CatalogPage struct {
	NextPage *string   `json:"next_page"`
	Data     []Dataset `json:"data"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
}
