package helpers

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/retailops/erpsync/internal/platform/models"
	pgmodels "github.com/retailops/erpsync/internal/platform/storage/gen/postgres/public/model"
	"github.com/retailops/erpsync/internal/platform/storage/storagetesting"
	"github.com/retailops/erpsync/internal/progress"
	"github.com/go-jet/jet/v2/qrm"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

const (
	contentType = "Content-Type"
)

// WaitForFinishedTasks is blocking helper function, returns registry tasks
// after at least n of them reached a terminal state, oldest first.
func WaitForFinishedTasks(t *testing.T, registry *progress.Registry, n int) []progress.Snapshot {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for {
		if time.Now().After(deadline) {
			require.FailNow(t, "sync tasks did not finish in time")
		}
		<-time.After(time.Millisecond * 250)

		finished := make([]progress.Snapshot, 0, n)
		for _, snapshot := range registry.List() {
			if snapshot.Status != progress.StatusRunning {
				finished = append(finished, snapshot)
			}
		}

		if len(finished) >= n {
			sort.Slice(finished, func(i, j int) bool {
				return finished[i].CreatedAt.Before(finished[j].CreatedAt)
			})
			return finished
		}
	}
}

// GetProducts is helper function for getting products from db ordered by external id.
func GetProducts(t *testing.T, queryable qrm.Queryable) []pgmodels.Product {
	t.Helper()

	products := storagetesting.GetProducts(t, queryable)

	sort.Slice(products, func(i, j int) bool {
		var aID, bID string
		if products[i].ExternalID != nil {
			aID = *products[i].ExternalID
		}
		if products[j].ExternalID != nil {
			bID = *products[j].ExternalID
		}
		return aID < bID
	})

	return products
}

// PrepareMockedHTTPServer is helper function for mocking http srv and client.
// Returns function for setting document to return, document number is from 0 to len(documents) inclusive.
func PrepareMockedHTTPServer(t *testing.T, documents [][]byte, statusCode int) (*httptest.Server, func(int)) {
	t.Helper()

	documentToReturnIx := 0

	srv := httptest.NewServer(http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		wrt.Header().Add(contentType, "application/xml")
		wrt.WriteHeader(statusCode)
		_, _ = wrt.Write(documents[documentToReturnIx])
	}))

	t.Cleanup(func() {
		srv.Close()
	})

	return srv, func(i int) { documentToReturnIx = i }
}

// DeclareRMQExchange is helper function for declaring RMQ exchange.
func DeclareRMQExchange(t *testing.T, ch *amqp.Channel, exchange string) {
	t.Helper()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		require.FailNow(t, "can't declare exchange", exchange, err)
	}
}

// DeclareRMQQueue is helper function for declaring RMQ queue and binding and cleaning them after test is finished.
func DeclareRMQQueue(t *testing.T, channel *amqp.Channel, queueName, exchange, routingKey string) {
	t.Helper()

	_, err := channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		require.FailNow(t, "can't declare queue", queueName, err)
	}

	err = channel.QueueBind(queueName, routingKey, exchange, false, nil)
	if err != nil {
		require.FailNow(t, "can't bind queue", queueName, routingKey, err)
	}

	t.Cleanup(func() {
		_, err := channel.QueueDelete(queueName, false, false, true)
		if err != nil {
			require.FailNow(t, "can't delete queue", queueName, err)
		}
	})
}

// GenerateTestOffers generates n offers with external id prod-1..prod-n and a
// fixed two-warehouse stock split.
func GenerateTestOffers(t *testing.T, n int) []models.OfferRecord {
	t.Helper()

	results := make([]models.OfferRecord, n)

	for ix := 0; ix < n; ix++ {
		offer := models.OfferRecord{
			ExternalID: fmt.Sprintf("prod-%04d", ix+1),
			Article:    fmt.Sprintf("ART-%04d", ix+1),
			Name:       fmt.Sprintf("Product %d", ix+1),
			Barcode:    fmt.Sprintf("46000000%05d", ix+1),
			Unit:       "pcs",
			GroupName:  "E2E",
			LocationQuantities: map[string]int{
				"wh-main":   ix + 10,
				"wh-outlet": ix + 1,
			},
		}
		for _, qty := range offer.LocationQuantities {
			offer.TotalQuantity += qty
		}
		results[ix] = offer
	}

	return results
}

// OffersToXML is helper function which renders offers as an exchange document
// and returns it as byte slice.
func OffersToXML(t *testing.T, offers []models.OfferRecord) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString("<Exchange>\n<Offers>\n")

	encoder := xml.NewEncoder(&buf)
	for ix := range offers {
		offer := toXMLOffer(&offers[ix])
		if err := encoder.Encode(&offer); err != nil {
			require.FailNow(t, "can't encode offer to xml", err)
		}
	}
	if err := encoder.Close(); err != nil {
		require.FailNow(t, "can't close xml encoder", err)
	}

	buf.WriteString("\n</Offers>\n</Exchange>")

	return buf.Bytes()
}

type xmlWarehouse struct {
	WarehouseID string `xml:"WarehouseId,attr"`
	Quantity    int    `xml:"QuantityInStock,attr"`
}

type xmlWarehouses struct {
	Warehouses []xmlWarehouse `xml:"Warehouse"`
}

type xmlOffer struct {
	XMLName    xml.Name       `xml:"Offer"`
	ID         string         `xml:"Id"`
	Article    string         `xml:"Article"`
	Name       string         `xml:"Name"`
	Barcode    string         `xml:"Barcode,omitempty"`
	BaseUnit   string         `xml:"BaseUnit,omitempty"`
	Group      string         `xml:"Group,omitempty"`
	Warehouses *xmlWarehouses `xml:"Warehouses,omitempty"`
}

func toXMLOffer(offer *models.OfferRecord) xmlOffer {
	result := xmlOffer{
		ID:       offer.ExternalID,
		Article:  offer.Article,
		Name:     offer.Name,
		Barcode:  offer.Barcode,
		BaseUnit: offer.Unit,
		Group:    offer.GroupName,
	}

	if len(offer.LocationQuantities) > 0 {
		locations := make([]string, 0, len(offer.LocationQuantities))
		for location := range offer.LocationQuantities {
			locations = append(locations, location)
		}
		sort.Strings(locations)

		warehouses := xmlWarehouses{}
		for _, location := range locations {
			warehouses.Warehouses = append(warehouses.Warehouses, xmlWarehouse{
				WarehouseID: location,
				Quantity:    offer.LocationQuantities[location],
			})
		}
		result.Warehouses = &warehouses
	}

	return result
}
