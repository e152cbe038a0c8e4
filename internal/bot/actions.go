package bot

import (
	"fmt"
	"strings"

	"github.com/fr8labs/leadbot/internal/crm"
)

// Callback action data. The create verb keeps its historical spelling;
// clients in the wild still carry keyboards with it.
const (
	cbCreateLead  = "creat_lead"
	cbCreateDeal  = "creat_deal"
	cbUpdateLead  = "update_lead"
	cbUpdateDeal  = "update_deal"
	cbSelectLead  = "select_lead"
	cbSelectDeal  = "select_deal"
	cbConfirmLead = "confirm_lead_draft"
	cbConfirmDeal = "confirm_deal_draft"
	cbConvertLead = "convert_lead"
	cbMoreLead    = "more_lead"
	cbMoreDeal    = "more_deal"
	cbPrevLead    = "prev_lead"
	cbPrevDeal    = "prev_deal"
	cbFilterLead  = "filter_lead"
	cbFilterDeal  = "filter_deal"
	cbCancelDraft = "cancel_draft"
)

// action is the closed set of callback intents; parsing the raw string once
// keeps startsWith/split logic out of the dispatch switch.
type action interface {
	isAction()
}

type actionCreate struct{ Doctype crm.Doctype }
type actionUpdatePrompt struct{ Doctype crm.Doctype }
type actionSelect struct {
	Doctype crm.Doctype
	Name    string
}
type actionConfirm struct {
	Doctype crm.Doctype
	DraftID string
}
type actionConvert struct{ Name string }
type actionPage struct {
	Doctype crm.Doctype
	Delta   int
}
type actionFilterHelp struct{ Doctype crm.Doctype }
type actionCancel struct{}

func (actionCreate) isAction()       {}
func (actionUpdatePrompt) isAction() {}
func (actionSelect) isAction()       {}
func (actionConfirm) isAction()      {}
func (actionConvert) isAction()      {}
func (actionPage) isAction()         {}
func (actionFilterHelp) isAction()   {}
func (actionCancel) isAction()       {}

// parseAction converts raw callback data into a typed action.
func parseAction(data string) (action, error) {
	verb, arg, hasArg := strings.Cut(data, ":")

	if hasArg {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return nil, fmt.Errorf("empty argument in action %q", data)
		}
		switch verb {
		case cbSelectLead, cbUpdateLead:
			return actionSelect{Doctype: crm.DoctypeLead, Name: arg}, nil
		case cbSelectDeal, cbUpdateDeal:
			return actionSelect{Doctype: crm.DoctypeDeal, Name: arg}, nil
		case cbConfirmLead:
			return actionConfirm{Doctype: crm.DoctypeLead, DraftID: arg}, nil
		case cbConfirmDeal:
			return actionConfirm{Doctype: crm.DoctypeDeal, DraftID: arg}, nil
		case cbConvertLead:
			return actionConvert{Name: arg}, nil
		}
		return nil, fmt.Errorf("unknown action %q", data)
	}

	switch verb {
	case cbCreateLead:
		return actionCreate{Doctype: crm.DoctypeLead}, nil
	case cbCreateDeal:
		return actionCreate{Doctype: crm.DoctypeDeal}, nil
	case cbUpdateLead:
		return actionUpdatePrompt{Doctype: crm.DoctypeLead}, nil
	case cbUpdateDeal:
		return actionUpdatePrompt{Doctype: crm.DoctypeDeal}, nil
	case cbMoreLead:
		return actionPage{Doctype: crm.DoctypeLead, Delta: 1}, nil
	case cbMoreDeal:
		return actionPage{Doctype: crm.DoctypeDeal, Delta: 1}, nil
	case cbPrevLead:
		return actionPage{Doctype: crm.DoctypeLead, Delta: -1}, nil
	case cbPrevDeal:
		return actionPage{Doctype: crm.DoctypeDeal, Delta: -1}, nil
	case cbFilterLead:
		return actionFilterHelp{Doctype: crm.DoctypeLead}, nil
	case cbFilterDeal:
		return actionFilterHelp{Doctype: crm.DoctypeDeal}, nil
	case cbCancelDraft:
		return actionCancel{}, nil
	}
	return nil, fmt.Errorf("unknown action %q", data)
}

// confirmCallback builds the confirm action data for a draft.
func confirmCallback(doctype crm.Doctype, draftID string) string {
	if doctype == crm.DoctypeDeal {
		return cbConfirmDeal + ":" + draftID
	}
	return cbConfirmLead + ":" + draftID
}

// selectCallback builds the numbered-button action data for a result row.
func selectCallback(doctype crm.Doctype, name string) string {
	if doctype == crm.DoctypeDeal {
		return cbSelectDeal + ":" + name
	}
	return cbSelectLead + ":" + name
}

func pageCallback(doctype crm.Doctype, more bool) string {
	switch {
	case doctype == crm.DoctypeDeal && more:
		return cbMoreDeal
	case doctype == crm.DoctypeDeal:
		return cbPrevDeal
	case more:
		return cbMoreLead
	}
	return cbPrevLead
}

func filterCallback(doctype crm.Doctype) string {
	if doctype == crm.DoctypeDeal {
		return cbFilterDeal
	}
	return cbFilterLead
}

func createCallback(doctype crm.Doctype) string {
	if doctype == crm.DoctypeDeal {
		return cbCreateDeal
	}
	return cbCreateLead
}
