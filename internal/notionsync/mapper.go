package notionsync

import (
	"encoding/json"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the target database.
const (
	PropertyName  = "Name"
	PropertyPrice = "Price"
	PropertyDate  = "Date"
)

// DateOnlyProperty is a Notion date property sent as a bare YYYY-MM-DD start.
// notionapi.Date always marshals as RFC3339, which Notion stores as midnight
// UTC and shows on the previous day in workspaces behind UTC.
type DateOnlyProperty struct {
	Start civil.Date
}

func (p DateOnlyProperty) GetID() string { return "" }

func (p DateOnlyProperty) GetType() notionapi.PropertyType { return notionapi.PropertyTypeDate }

func (p DateOnlyProperty) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"date": map[string]string{"start": p.Start.String()},
	})
}

// EntryToNotionProperties converts a store entry to Notion properties:
// Name (title), Price (number, only when the amount parsed) and Date.
func EntryToNotionProperties(entry domain.StoreEntry) notionapi.Properties {
	props := notionapi.Properties{
		PropertyName: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: entry.Name,
					},
				},
			},
		},
		PropertyDate: DateOnlyProperty{Start: entry.Date},
	}

	if entry.Amount != nil {
		props[PropertyPrice] = notionapi.NumberProperty{
			Number: *entry.Amount,
		}
	}

	return props
}
