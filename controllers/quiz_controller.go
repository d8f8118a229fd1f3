package controllers

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tripplekay/KayCutts/models"
	"github.com/tripplekay/KayCutts/notify"
	"github.com/tripplekay/KayCutts/utils"
)

// quizMu serializes appends to the quiz claims file. Claims are
// low-volume enough that a single file behind a mutex is fine.
var quizMu sync.Mutex

// POST /api/quiz-claim
func SubmitQuizClaim(c *gin.Context) {
	utils.LogInfo("SubmitQuizClaim called")

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
		Prize string `json:"prize"`
		Score int    `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body", err.Error())
		return
	}

	missing := utils.MissingFields(map[string]string{
		"name":  req.Name,
		"email": req.Email,
		"prize": req.Prize,
	}, []string{"name", "email", "prize"})
	if len(missing) > 0 {
		utils.BadRequest(c, "Missing required claim fields", gin.H{"missing": missing})
		return
	}
	if !utils.IsValidEmail(req.Email) {
		utils.BadRequest(c, "Invalid email address", nil)
		return
	}

	claim := models.QuizClaim{
		Name:  req.Name,
		Email: req.Email,
		Prize: req.Prize,
		Score: req.Score,
		Date:  time.Now().UTC().Format(time.RFC3339),
	}

	if err := appendQuizClaim(claim); err != nil {
		utils.LogError("Failed to persist quiz claim: %v", err)
		utils.InternalServerError(c, "Failed to save claim", err.Error())
		return
	}
	utils.LogInfo("Quiz claim recorded for %s (prize: %s)", claim.Name, claim.Prize)

	if req.Phone != "" {
		if phone, ok := utils.NormalizePhone(req.Phone); ok {
			enqueueNotification(notify.Message{
				Phone: phone,
				SMSText: fmt.Sprintf(
					"Congrats %s! Your quiz prize (%s) is locked in. Mention it at your next visit. - Tripple Kay Cuts",
					claim.Name, claim.Prize,
				),
			})
		}
	}

	utils.Success(c, "Claim recorded", gin.H{"claim": claim})
}

func appendQuizClaim(claim models.QuizClaim) error {
	quizMu.Lock()
	defer quizMu.Unlock()

	path := deps.Cfg.QuizClaims
	var claims []models.QuizClaim
	data, err := os.ReadFile(path)
	if err == nil {
		if uerr := json.Unmarshal(data, &claims); uerr != nil {
			utils.LogError("Quiz claims file %s is corrupt, starting over: %v", path, uerr)
			claims = nil
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	claims = append(claims, claim)
	out, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
