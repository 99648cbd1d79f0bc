package poster

// CSS selectors for Marktplaats "plaats een advertentie" flow elements.
const (
	// Category suggestion step
	FindCategoryButtonSelector = "[data-testid='findCategory']"
	SuggestionRadioSelector    = "input[type='radio']"

	// Form fields
	RichTextEditorSelector = "[data-testid='text-editor-input_nl-NL']"
	PriceInputSelector     = "#price\\.value"
	PriceInputNameSelector = "input[name='price.value']"
	DeliveryRadioSelector  = "input[name='deliveryMethod']"

	// Pricing bundle step
	FreeBundleSelector = "#feature-FREE"

	// Final submit
	PlaceAdButtonSelector = "#syi-place-ad-button"
)

// FileInputSelectors is the priority order for locating the photo upload
// control, most specific first.
var FileInputSelectors = []string{
	"input[type='file'][multiple]",
	"input[type='file'][accept*='.jpg']",
	"input[type='file'][id^='html5_']",
	"input[type='file']",
}

// PlaceAdCTASelectors are variants of the localized "place your ad"
// call-to-action, tried after the known button id and generic candidates.
// The visible-text variant is handled separately by the text strategy.
var PlaceAdCTASelectors = []string{
	"[aria-label='Plaats je advertentie']",
	"[data-testid='placeAd']",
	"[data-role='placeAd']",
	"[type='submit']",
}

// CandidateScanLimit bounds generic text scans so a pathological page cannot
// make a single segment lookup walk the whole DOM.
const CandidateScanLimit = 150

// Dutch UI texts used across the flow.
const (
	TitleLabel       = "Titel"
	DescriptionLabel = "Beschrijving"
	PriceLabel       = "Prijs"
	LocationLabel    = "Plaatsnaam"
	ContinueButton   = "Verder"
	FindCategoryText = "Vind categorie"
	ViewAdLinkText   = "Bekijk je advertentie"
)
