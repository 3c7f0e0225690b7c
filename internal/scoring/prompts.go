package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jobops/jobops/internal/models"
)

const extractSystemPrompt = `You extract structured fields from job descriptions.
Respond with a single JSON object and nothing else. Use null for unknown
scalar fields and [] for unknown lists.`

const reasonSystemPrompt = `You score job postings against a candidate's target roles.
Respond with a single JSON object and nothing else. Scores are 0-100.`

// ExtractOutput is the strict-JSON shape of the extract stage.
type ExtractOutput struct {
	RoleTitle          string          `json:"role_title"`
	Company            string          `json:"company"`
	Location           string          `json:"location"`
	Seniority          string          `json:"seniority"`
	WorkMode           string          `json:"work_mode"`
	ExperienceYearsMin *models.FlexInt `json:"experience_years_min"`
	ExperienceYearsMax *models.FlexInt `json:"experience_years_max"`
	MustHaveKeywords   []string        `json:"must_have_keywords"`
	NiceToHaveKeywords []string        `json:"nice_to_have_keywords"`
	RejectKeywords     []string        `json:"reject_keywords"`
}

// ReasonOutput is the strict-JSON shape of the reason stage.
type ReasonOutput struct {
	PrimaryTargetID   string             `json:"primary_target_id"`
	ScoreMust         float64            `json:"score_must"`
	ScoreNice         float64            `json:"score_nice"`
	FinalScore        float64            `json:"final_score"`
	RejectTriggered   models.FlexInt     `json:"reject_triggered"`
	ReasonTopMatches  string             `json:"reason_top_matches"`
	PotentialContacts []PotentialContact `json:"potential_contacts"`
}

type PotentialContact struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	LinkedInURL string `json:"linkedin_url"`
	Email       string `json:"email"`
}

func buildExtractPrompt(job *models.Job) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from this job description as JSON:\n")
	b.WriteString(`{"role_title", "company", "location", "seniority", "work_mode", `)
	b.WriteString(`"experience_years_min", "experience_years_max", "must_have_keywords": [], `)
	b.WriteString(`"nice_to_have_keywords": [], "reject_keywords": []}`)
	b.WriteString("\n\nJob URL: " + job.JobURL + "\n\nJob description:\n")
	b.WriteString(job.JDTextClean)
	return b.String()
}

func buildReasonPrompt(job *models.Job, targets []*models.Target, wMust, wNice float64) string {
	targetsJSON, _ := json.MarshalIndent(targets, "", "  ")

	var b strings.Builder
	b.WriteString("Score this job against each candidate target and pick the best fit.\n")
	b.WriteString("Respond as JSON: ")
	b.WriteString(`{"primary_target_id", "score_must", "score_nice", "final_score", `)
	b.WriteString(`"reject_triggered", "reason_top_matches", "potential_contacts": []}`)
	fmt.Fprintf(&b, "\n\nfinal_score must equal clip(%.2f*score_must + %.2f*score_nice - reject_penalty, 0, 100).\n", wMust, wNice)
	b.WriteString("If targets tie, prefer higher final_score, then higher score_must, then the lexicographically smallest target id.\n")
	b.WriteString("\nTargets:\n")
	b.Write(targetsJSON)
	b.WriteString("\n\nJob:\nTitle: " + job.RoleTitle + "\nCompany: " + job.Company + "\n\nJob description:\n")
	b.WriteString(job.JDTextClean)
	return b.String()
}

// parseJSONBlock tolerates completions that wrap the object in prose or
// markdown fences.
func parseJSONBlock(text string, out any) error {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			text = text[i : j+1]
		}
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("model returned invalid JSON: %w", err)
	}
	return nil
}
