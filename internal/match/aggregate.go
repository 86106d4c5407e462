package match

import (
	"fmt"
	"log"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

// AnchorVectors resolves an anchor's components into the vector set it is
// scored with. Tag components resolve by name, kb_item components by source
// location, program components via the program's charter document.
// Unresolvable components are logged and dropped; an anchor left with no
// vectors is skipped by the scoring pass.
func AnchorVectors(db *database.DB, anchor database.Anchor) ([][]float64, error) {
	components, err := db.GetAnchorComponents(anchor.ID)
	if err != nil {
		return nil, fmt.Errorf("getting components for anchor %q: %w", anchor.Name, err)
	}

	var vectors [][]float64
	for _, c := range components {
		switch c.Type {
		case "tag":
			v, err := db.GetTagVector(c.ComponentID)
			if err != nil {
				return nil, err
			}
			if v == nil {
				log.Printf("Anchor %q: tag %q has no embedding, dropping", anchor.Name, c.ComponentID)
				continue
			}
			vectors = append(vectors, v)

		case "kb_item":
			chunks, err := db.GetKBVectors(c.ComponentID)
			if err != nil {
				return nil, err
			}
			if len(chunks) == 0 {
				log.Printf("Anchor %q: kb item %q has no chunks, dropping", anchor.Name, c.ComponentID)
				continue
			}
			vectors = append(vectors, chunks...)

		case "program":
			location, err := db.GetProgramCharterLocation(c.ComponentID)
			if err != nil {
				return nil, err
			}
			if location == "" {
				log.Printf("Anchor %q: program %q has no charter, dropping", anchor.Name, c.ComponentID)
				continue
			}
			chunks, err := db.GetKBVectors(location)
			if err != nil {
				return nil, err
			}
			if len(chunks) == 0 {
				log.Printf("Anchor %q: program charter %q has no chunks, dropping", anchor.Name, location)
				continue
			}
			vectors = append(vectors, chunks...)

		default:
			log.Printf("Anchor %q: unknown component type %q, dropping", anchor.Name, c.Type)
		}
	}

	return vectors, nil
}
