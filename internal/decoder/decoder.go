package decoder

import (
	"context"
	"encoding/xml"
	"errors"
	"html"
	"io"

	"github.com/retailops/erpsync/internal/platform/models"
)

// Decoder decodes exchange documents into offer records.
type Decoder struct{}

// Decode walks xml tokens in document and sends one OfferResult per offer
// node into output. Offers without a usable identifier are emitted with a
// skip reason instead of aborting the stream; only a document-level syntax
// error stops decoding. Decoding the same document twice yields the same
// sequence.
func (d Decoder) Decode(ctx context.Context, document io.Reader, output chan<- models.OfferResult) error {
	dec := xml.NewDecoder(document)
	dec.Strict = true

	for {
		token, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		element, ok := token.(xml.StartElement)
		if !ok || !isOfferElement(element.Name) {
			continue
		}

		var node rawElement
		if err := dec.DecodeElement(&node, &element); err != nil {
			return err
		}

		result := toOfferResult(&node)
		result.Offer.Name = html.UnescapeString(result.Offer.Name)
		result.Offer.GroupName = html.UnescapeString(result.Offer.GroupName)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- result:
		}
	}
}

// isOfferElement accepts offer nodes under both the qualified and the
// unqualified convention of the exchange format.
func isOfferElement(name xml.Name) bool {
	if name.Local != "Offer" && name.Local != "Product" {
		return false
	}
	return name.Space == "" || name.Space == NamespaceExchange
}
