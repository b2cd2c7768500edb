package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	registerName   string
	registerGender string
	startCourts    int
	scoreMatchID   string
	scoreCourt     int
	scoreA         int
	scoreB         int
	playersStatus  string
)

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "Display name for the player")
	registerCmd.Flags().StringVar(&registerGender, "gender", "", "Optional gender for pairing balance")
	startCmd.Flags().IntVar(&startCourts, "courts", 1, "Maximum number of courts to fill")
	scoreCmd.Flags().StringVar(&scoreMatchID, "match", "", "The match id the score belongs to")
	scoreCmd.Flags().IntVar(&scoreCourt, "court", 1, "Court number")
	scoreCmd.Flags().IntVar(&scoreA, "score-a", 0, "Team A score")
	scoreCmd.Flags().IntVar(&scoreB, "score-b", 0, "Team B score")
	playersCmd.Flags().StringVar(&playersStatus, "status", "", "Filter by status (PENDING, RESTING, PLAYING)")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(leaveCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(finishCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <user-id>",
	Short: "Check a player in for tonight's session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := registerName
		if name == "" {
			name = args[0]
		}
		return performPostRequest("/register", map[string]any{
			"user_id": args[0],
			"name":    name,
			"gender":  registerGender,
		})
	},
}

var leaveCmd = &cobra.Command{
	Use:   "leave <user-id>",
	Short: "Check a player out of the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/leave", map[string]any{"user_id": args[0]})
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List checked-in players",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/players"
		if playersStatus != "" {
			endpoint += "?status=" + playersStatus
		}
		return performGetRequest(endpoint)
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the player leaderboard by conservative skill",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/leaderboard")
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a round on up to --courts courts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/match/start", map[string]any{"max_courts": startCourts})
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Submit one court's score for the running match",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/match/score", map[string]any{
			"match_id":     scoreMatchID,
			"court_number": scoreCourt,
			"score_a":      scoreA,
			"score_b":      scoreB,
		})
	},
}

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Finish the running match and apply rating updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/match/finish", nil)
	},
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current match line-up",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/match/current")
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Force the session back to idle (requires --admin-token)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/admin/reset", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

func performGetRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func performPostRequest(endpoint string, payload any) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if adminToken != "" {
		req.Header.Set("X-Admin-Token", adminToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
