// internal/service/template_service.go
package service

import (
    "strconv"
    "strings"

    "github.com/glowdesk/messaging-backend/internal/model"
)

// RenderTemplate substitutes contact placeholders into a message template.
// Missing fields become empty strings and unrecognized placeholders are left
// verbatim. No escaping is done; the transport owns content safety.
func RenderTemplate(template string, contact model.Contact, year int) string {
    firstName := ""
    if fields := strings.Fields(contact.Name); len(fields) > 0 {
        firstName = fields[0]
    }

    result := template
    result = strings.ReplaceAll(result, "{name}", contact.Name)
    result = strings.ReplaceAll(result, "{firstName}", firstName)
    result = strings.ReplaceAll(result, "{phone}", contact.Phone)
    result = strings.ReplaceAll(result, "{email}", contact.Email)
    result = strings.ReplaceAll(result, "{year}", strconv.Itoa(year))
    return result
}
