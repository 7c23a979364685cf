package processor

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/steelcopilot/chat-service/internal/domain/models"
)

const inventorySummary = "Analysis shows varying stock levels across sales offices. " +
	"Mumbai has highest inventory of S_HRCF with 2250 units available for unrestricted use. " +
	"Delhi maintains moderate stock levels of CR Coil, while Chennai has the lowest overall inventory of Galvanized products."

// queryContext describes the module and agent a data request was asked in.
// Data replies are cached by message, module and agent, so nothing tied to
// the caller may appear here.
func queryContext(module string, agentID *int) string {
	ctx := "Module: general"
	if module != "" {
		ctx = "Module: " + module
	}
	if HasAgent(agentID) {
		ctx += fmt.Sprintf(", Agent: %d", *agentID)
	}
	return ctx
}

// InventoryQuery is the query description returned for data requests.
func InventoryQuery(module string, agentID *int) string {
	return fmt.Sprintf("SELECT * FROM inventory WHERE context='%s' LIMIT 10;", queryContext(module, agentID))
}

func inventoryRecords() *models.TableData {
	row := func(office, form string, unrestricted, inspection, blocked, inHand int) map[string]interface{} {
		return map[string]interface{}{
			"Distribution Channel":   "OEM",
			"Sales Office":           office,
			"Product Form":           form,
			"Unrestricted Quantity":  unrestricted,
			"Inspection Quantity":    inspection,
			"Blocked Quantity":       blocked,
			"In Hand Stock Quantity": inHand,
		}
	}
	return &models.TableData{Records: []map[string]interface{}{
		row("Mumbai", "S_HRCF", 2250, 0, 125, 2375),
		row("Delhi", "CR Coil", 1850, 200, 75, 2125),
		row("Chennai", "Galvanized", 1625, 150, 50, 1825),
	}}
}

// dataReply answers a data request from the inventory template.
func dataReply(log zerolog.Logger, req Request) *models.Reply {
	progress(log, 0, "Generating query")
	query := InventoryQuery(req.Module, req.AgentID)

	progress(log, 30, "Executing query")
	records := inventoryRecords()

	progress(log, 60, "Generating summary")
	summary := inventorySummary

	progress(log, 100, "Complete")
	return &models.Reply{
		Text:         query,
		TableData:    records,
		Summary:      &summary,
		NextQuestion: FollowUps(req.Persona),
	}
}

func progress(log zerolog.Logger, pct int, stage string) {
	log.Debug().Int("progress", pct).Str("stage", stage).Msg("data request progress")
}
