package worker

import (
	"fmt"

	"outreachengine/models"
	"outreachengine/template"
)

// leadVariables builds the merged lead+inbox variable map the template
// engine renders against, including
// custom_fields.* under their dotted key.
func leadVariables(lead models.Lead, inbox models.Inbox) template.Variables {
	vars := template.Variables{
		"firstName":   lead.FirstName,
		"lastName":    lead.LastName,
		"fullName":    fmt.Sprintf("%s %s", lead.FirstName, lead.LastName),
		"email":       lead.Email,
		"company":     lead.Company,
		"title":       lead.Title,
		"phone":       lead.Phone,
		"linkedinUrl": lead.LinkedinURL,
		"website":     lead.Website,
		"country":     lead.Country,
		"city":        lead.City,

		"senderFirstName": inbox.SenderFirstName,
		"senderLastName":  inbox.SenderLastName,
		"senderCompany":   inbox.SenderCompany,
		"senderTitle":     inbox.SenderTitle,
		"senderPhone":     inbox.SenderPhone,
		"senderWebsite":   inbox.SenderWebsite,
		"fromName":        inbox.FromName,
		"fromEmail":       inbox.Email,
	}
	for k, v := range lead.CustomFields {
		vars["custom_fields."+k] = fmt.Sprintf("%v", v)
	}
	return vars
}
