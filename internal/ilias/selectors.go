package ilias

import "github.com/andybalholm/cascadia"

// selectors holds every compiled selector used to read portal pages. One
// instance is created per Client and shared by all parsers.
type selectors struct {
	pageTitle       cascadia.Selector
	pageDescription cascadia.Selector
	contentForm     cascadia.Selector
	anchor          cascadia.Selector

	// single sign-on
	csrfToken    cascadia.Selector
	samlResponse cascadia.Selector
	relayState   cascadia.Selector
	idpError     cascadia.Selector

	// exercise
	assignment        cascadia.Selector
	assignmentName    cascadia.Selector
	infoSection       cascadia.Selector
	infoSectionHeader cascadia.Selector
	infoRow           cascadia.Selector
	infoLabel         cascadia.Selector
	infoValue         cascadia.Selector

	// submission
	submissionRow     cascadia.Selector
	deliveredCheckbox cascadia.Selector
	uploadButton      cascadia.Selector

	// folder
	breadcrumb       cascadia.Selector
	addFileLink      cascadia.Selector
	folderItem       cascadia.Selector
	folderItemTitle  cascadia.Selector
	folderItemDesc   cascadia.Selector
	folderItemProp   cascadia.Selector
	folderItemAction cascadia.Selector

	// forms
	hiddenInput  cascadia.Selector
	fileInput    cascadia.Selector
	textInput    cascadia.Selector
	submitButton cascadia.Selector
}

func newSelectors() *selectors {
	return &selectors{
		pageTitle:       cascadia.MustCompile(".il-page-content-header"),
		pageDescription: cascadia.MustCompile(".ilHeaderDesc"),
		contentForm:     cascadia.MustCompile("div#ilContentContainer form"),
		anchor:          cascadia.MustCompile("a[href]"),

		csrfToken:    cascadia.MustCompile("input[name=csrf_token]"),
		samlResponse: cascadia.MustCompile("input[name=SAMLResponse]"),
		relayState:   cascadia.MustCompile("input[name=RelayState]"),
		idpError:     cascadia.MustCompile(".form-error, .alert-danger"),

		assignment:        cascadia.MustCompile("div.il_VAccordionContainer div.il_VAccordionInnerContainer"),
		assignmentName:    cascadia.MustCompile(".ilAssignmentHeader"),
		infoSection:       cascadia.MustCompile(".ilInfoScreenSec"),
		infoSectionHeader: cascadia.MustCompile(".ilHeader"),
		infoRow:           cascadia.MustCompile(".form-group"),
		infoLabel:         cascadia.MustCompile(".il_InfoScreenProperty"),
		infoValue:         cascadia.MustCompile(".il_InfoScreenPropertyValue"),

		submissionRow:     cascadia.MustCompile("form tbody tr"),
		deliveredCheckbox: cascadia.MustCompile("input[type=checkbox]"),
		uploadButton:      cascadia.MustCompile("nav div.navbar-header button"),

		breadcrumb:       cascadia.MustCompile(".breadcrumb .crumb:last-child a"),
		addFileLink:      cascadia.MustCompile("#il-add-new-item-gl #file"),
		folderItem:       cascadia.MustCompile(".ilContainerListItemOuter"),
		folderItemTitle:  cascadia.MustCompile(".il_ContainerItemTitle a"),
		folderItemDesc:   cascadia.MustCompile(".il_Description"),
		folderItemProp:   cascadia.MustCompile(".il_ItemProperties .il_ItemProperty"),
		folderItemAction: cascadia.MustCompile(".dropdown-menu a[href]"),

		hiddenInput:  cascadia.MustCompile("input[type=hidden][name]"),
		fileInput:    cascadia.MustCompile("input[type=file][name]"),
		textInput:    cascadia.MustCompile("input[type=text][name]"),
		submitButton: cascadia.MustCompile("input[type=submit][name], button[type=submit][name]"),
	}
}
