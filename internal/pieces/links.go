package pieces

import (
	"fmt"
	"strings"
)

// Links builds admin URLs for created records
type Links struct {
	Base string
}

// NewLinks trims trailing slashes from base
func NewLinks(base string) Links {
	return Links{Base: strings.TrimRight(base, "/")}
}

func (l Links) Piece(id int64) string {
	return fmt.Sprintf("%s/pieces/%d/update", l.Base, id)
}

func (l Links) Collection(id int64) string {
	return fmt.Sprintf("%s/collections/%d/update", l.Base, id)
}

func (l Links) Category(id int64) string {
	return fmt.Sprintf("%s/categories/%d/update", l.Base, id)
}
