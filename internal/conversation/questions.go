package conversation

// Guided questions asked, in order, to established business owners who open
// a fresh chat.
var guidedQuestions = []string{
	"What is the name of your business?",
	"What industry is it in?",
	"Where is your target market?",
	"How many sales do you make a year?",
	"Are you service-based or product-based?",
	"What is your largest goal for this coming year?",
}

var topics = []string{
	"a new goal",
	"business basics",
	"building my business",
	"scaling my business",
}

func GuidedQuestions() []string {
	return append([]string(nil), guidedQuestions...)
}

func Topics() []string {
	return append([]string(nil), topics...)
}
