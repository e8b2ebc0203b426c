// Package intent defines the closed set of conversation intents and the
// rule-based classifier that maps free-form messages onto them.
package intent

// Intent identifies which step of which conversation flow is active.
type Intent string

// Customer-facing intents.
const (
	// General is the catch-all for plain conversation and is also the
	// "no flow in progress" marker when stored on a session.
	General Intent = "general_query"
	FAQ     Intent = "faq"

	StartScheduling Intent = "start_scheduling"
	CollectService  Intent = "scheduling_collect_service"
	CollectDate     Intent = "scheduling_collect_date"
	CollectTime     Intent = "scheduling_collect_time"
	ConfirmBooking  Intent = "scheduling_confirm"

	CheckAppointment      Intent = "check_appointment"
	CancelAppointment     Intent = "cancel_appointment"
	RescheduleAppointment Intent = "reschedule_appointment"
)

// Administrative intents. Only reachable when the session is flagged admin.
const (
	AdminHelp          Intent = "admin_help"
	AdminViewPrompt    Intent = "admin_view_prompt"
	AdminUpdatePrompt  Intent = "admin_update_prompt"
	AdminListServices  Intent = "admin_list_services"
	AdminAddService    Intent = "admin_add_service"
	AdminUpdateService Intent = "admin_update_service"
	AdminToggleService Intent = "admin_toggle_service"
	AdminToggleRAG     Intent = "admin_toggle_rag"
	AdminShowHours     Intent = "admin_show_hours"
	AdminUpdateHours   Intent = "admin_update_hours"
	AdminBlockSchedule Intent = "admin_block_schedule"
	AdminListBlocks    Intent = "admin_list_blocks"
	AdminDeleteBlock   Intent = "admin_delete_block"
	AdminStats         Intent = "admin_stats"
)

// None marks a session with no active flow.
const None Intent = ""

// IsAdmin reports whether the intent belongs to the administrative family.
func (i Intent) IsAdmin() bool {
	switch i {
	case AdminHelp, AdminViewPrompt, AdminUpdatePrompt,
		AdminListServices, AdminAddService, AdminUpdateService, AdminToggleService,
		AdminToggleRAG, AdminShowHours, AdminUpdateHours,
		AdminBlockSchedule, AdminListBlocks, AdminDeleteBlock, AdminStats:
		return true
	}
	return false
}

// IsSchedulingStep reports whether the intent is a step of the customer
// scheduling flow.
func (i Intent) IsSchedulingStep() bool {
	switch i {
	case StartScheduling, CollectService, CollectDate, CollectTime, ConfirmBooking:
		return true
	}
	return false
}

// Known reports whether the value is one of the declared intents.
func Known(i Intent) bool {
	if i == None || i.IsAdmin() || i.IsSchedulingStep() {
		return true
	}
	switch i {
	case General, FAQ, CheckAppointment, CancelAppointment, RescheduleAppointment:
		return true
	}
	return false
}
