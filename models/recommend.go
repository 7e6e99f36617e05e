package models

type RecommendPostRequest struct {
	// Query is free text, optionally containing a URL whose page text is
	// added to the query before it is embedded.
	Query string `json:"query"`
}

type RecommendPostResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

type Recommendation struct {
	AssessmentName string `json:"Assessment name"`
	TestType       string `json:"Test Type"`
	Duration       string `json:"Duration"`
	RemoteTesting  string `json:"Remote Testing"`
	URL            string `json:"URL"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
