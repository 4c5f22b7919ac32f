package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/adeia-app/adeia/internal/ai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	AskResponse               *ai.AskResult
	AskError                  error
	AnalyzeBlueprintResponse  *ai.BlueprintResult
	AnalyzeBlueprintError     error
	GenerateChecklistResponse *ai.ChecklistResult
	GenerateChecklistError    error
	DraftLetterResponse       *ai.LetterResult
	DraftLetterError          error
	WriteNarrativeResponse    *ai.NarrativeResult
	WriteNarrativeError       error

	// Call tracking for testing
	AskCalls               int
	AnalyzeBlueprintCalls  int
	GenerateChecklistCalls int
	DraftLetterCalls       int
	WriteNarrativeCalls    int
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// mockUsage is the canned usage accounting attached to default responses
func mockUsage() ai.UsageInfo {
	return ai.UsageInfo{
		Model:        "mock-ai-v1",
		InputTokens:  1250,
		OutputTokens: 850,
		CostCents:    5,
		Duration:     250 * time.Millisecond,
	}
}

// Ask returns a canned regulation answer
func (p *Provider) Ask(ctx context.Context, params ai.AskParams) (*ai.AskResult, error) {
	p.AskCalls++

	if p.AskError != nil {
		return nil, p.AskError
	}
	if p.AskResponse != nil {
		return p.AskResponse, nil
	}

	return &ai.AskResult{
		Answer: "Για εργασίες εσωτερικής διαρρύθμισης χωρίς θιγόμενα φέροντα στοιχεία αρκεί " +
			"έγκριση εργασιών μικρής κλίμακας. Εφόσον θίγεται ο φέρων οργανισμός, απαιτείται " +
			"οικοδομική άδεια με στατική μελέτη.",
		Citations: []ai.Citation{
			{
				Reference: "Ν. 4495/2017 άρθρο 29 παρ. 2",
				Excerpt:   "Εργασίες μικρής κλίμακας...",
			},
			{
				Reference: "Ν. 4067/2012 (ΝΟΚ) άρθρο 4",
			},
		},
		Usage: mockUsage(),
	}, nil
}

// AnalyzeBlueprint returns a canned drawing analysis
func (p *Provider) AnalyzeBlueprint(ctx context.Context, params ai.AnalyzeBlueprintParams) (*ai.BlueprintResult, error) {
	p.AnalyzeBlueprintCalls++

	if p.AnalyzeBlueprintError != nil {
		return nil, p.AnalyzeBlueprintError
	}
	if p.AnalyzeBlueprintResponse != nil {
		return p.AnalyzeBlueprintResponse, nil
	}

	return &ai.BlueprintResult{
		Summary: "Κάτοψη ισογείου σε κλίμακα 1:50. Το σχέδιο είναι ευανάγνωστο αλλά " +
			"λείπουν στοιχεία που απαιτούνται για την υποβολή.",
		DrawingType: "κάτοψη",
		Findings: []ai.Finding{
			{
				Title:       "Λείπει η οικοδομική γραμμή",
				Description: "Η οικοδομική και η ρυμοτομική γραμμή δεν σημειώνονται στο σχέδιο.",
				Severity:    ai.SeverityBlocking,
				Reference:   "ΝΟΚ άρθρο 2",
			},
			{
				Title:       "Δεν αναγράφεται βορράς",
				Description: "Το σύμβολο προσανατολισμού απουσιάζει.",
				Severity:    ai.SeverityWarning,
			},
			{
				Title:       "Πλήρης διαστασιολόγηση χώρων",
				Description: "Όλοι οι χώροι φέρουν διαστάσεις και εμβαδά.",
				Severity:    ai.SeverityInfo,
			},
		},
		Usage: mockUsage(),
	}, nil
}

// GenerateChecklist returns a canned filing checklist
func (p *Provider) GenerateChecklist(ctx context.Context, params ai.ChecklistParams) (*ai.ChecklistResult, error) {
	p.GenerateChecklistCalls++

	if p.GenerateChecklistError != nil {
		return nil, p.GenerateChecklistError
	}
	if p.GenerateChecklistResponse != nil {
		return p.GenerateChecklistResponse, nil
	}

	return &ai.ChecklistResult{
		Items: []ai.ChecklistItem{
			{
				Title:       "Τοπογραφικό διάγραμμα",
				Description: "Εξαρτημένο τοπογραφικό διάγραμμα σε ΕΓΣΑ '87, υπογεγραμμένο από αρμόδιο μηχανικό.",
				Required:    true,
				Reference:   "Ν. 4495/2017 άρθρο 40",
			},
			{
				Title:       "Αρχιτεκτονική μελέτη",
				Description: "Κατόψεις, τομές, όψεις και διάγραμμα κάλυψης.",
				Required:    true,
				Reference:   "Ν. 4495/2017 άρθρο 40",
			},
			{
				Title:       "Έγκριση Συμβουλίου Αρχιτεκτονικής",
				Description: "Απαιτείται μόνο σε παραδοσιακούς οικισμούς ή διατηρητέα κτίρια.",
				Required:    false,
				Reference:   "Ν. 4495/2017 άρθρο 7",
			},
		},
		Usage: mockUsage(),
	}, nil
}

// DraftLetter returns a canned transmittal letter
func (p *Provider) DraftLetter(ctx context.Context, params ai.LetterParams) (*ai.LetterResult, error) {
	p.DraftLetterCalls++

	if p.DraftLetterError != nil {
		return nil, p.DraftLetterError
	}
	if p.DraftLetterResponse != nil {
		return p.DraftLetterResponse, nil
	}

	return &ai.LetterResult{
		Subject: "Υποβολή συμπληρωματικών στοιχείων φακέλου οικοδομικής άδειας",
		Body: "Αξιότιμοι κύριοι,\n\nΣε συνέχεια της υπ' αριθμ. πρωτ. αίτησής μας, σας " +
			"υποβάλλουμε συνημμένα τα συμπληρωματικά στοιχεία που ζητήθηκαν.\n\n" +
			"Παραμένουμε στη διάθεσή σας για κάθε διευκρίνιση.\n\nΜε εκτίμηση,\n" +
			params.EngineerName,
		Usage: mockUsage(),
	}, nil
}

// WriteNarrative returns a canned report narrative
func (p *Provider) WriteNarrative(ctx context.Context, params ai.NarrativeParams) (*ai.NarrativeResult, error) {
	p.WriteNarrativeCalls++

	if p.WriteNarrativeError != nil {
		return nil, p.WriteNarrativeError
	}
	if p.WriteNarrativeResponse != nil {
		return p.WriteNarrativeResponse, nil
	}

	return &ai.NarrativeResult{
		Narrative: "Η παρούσα τεχνική έκθεση αφορά το ακίνητο επί της οδού " + params.ProjectAddress +
			". Ο φάκελος της αίτησης βρίσκεται σε στάδιο προετοιμασίας.\n\n" +
			"Από τον έλεγχο των σχεδίων δεν προέκυψαν κωλύματα που να εμποδίζουν την υποβολή.",
		Usage: mockUsage(),
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.AskCalls = 0
	p.AnalyzeBlueprintCalls = 0
	p.GenerateChecklistCalls = 0
	p.DraftLetterCalls = 0
	p.WriteNarrativeCalls = 0
	p.AskResponse = nil
	p.AskError = nil
	p.AnalyzeBlueprintResponse = nil
	p.AnalyzeBlueprintError = nil
	p.GenerateChecklistResponse = nil
	p.GenerateChecklistError = nil
	p.DraftLetterResponse = nil
	p.DraftLetterError = nil
	p.WriteNarrativeResponse = nil
	p.WriteNarrativeError = nil
}
