package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// PushService delivers web push notifications through the FCM HTTP v1 API.
// Clients register their device token on the user record; users without a
// token are silently skipped.
type PushService struct {
	projectID   string
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

type serviceAccountCredentials struct {
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// NewPushService builds a push service from a Firebase service account JSON
// file. Returns an error when the file is missing or unparseable; callers
// may treat that as "push disabled".
func NewPushService(credentialsPath string, db *sql.DB) (*PushService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds serviceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}
	if creds.ProjectID == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("credentials file missing project_id or private_key")
	}

	config := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(strings.ReplaceAll(creds.PrivateKey, "\\n", "\n")),
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}

	return &PushService{
		projectID:   creds.ProjectID,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

// SendToUser looks up the user's registered device token and pushes one
// notification. A user without a token is not an error.
func (p *PushService) SendToUser(ctx context.Context, userID int, title, body string, data map[string]string) error {
	var token string
	err := p.db.QueryRow(`SELECT push_token FROM users WHERE id = $1 AND push_token IS NOT NULL AND push_token != ''`, userID).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("error fetching push token for user %d: %v", userID, err)
	}
	return p.send(ctx, token, title, body, data)
}

func (p *PushService) send(ctx context.Context, token, title, body string, data map[string]string) error {
	oauthToken, err := p.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("error getting OAuth token: %v", err)
	}

	message := map[string]interface{}{
		"message": map[string]interface{}{
			"token": token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
			"webpush": map[string]interface{}{
				"fcm_options": map[string]interface{}{
					"link": data["action"],
				},
			},
		},
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("error marshaling message: %v", err)
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", p.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+oauthToken.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending push request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("FCM responded %d: %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("FCM request failed with status %d", resp.StatusCode)
	}
	return nil
}
