package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/stats"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the trailing days
// before now.
func defaultTimeRange(startStr, endStr string, now time.Time, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = now
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.DateOnly, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var periodOption = mcp.WithString("period",
	mcp.Description("Reporting window. Defaults to 'week'."),
	mcp.Enum(string(stats.PeriodWeek), string(stats.PeriodMonth), string(stats.PeriodYear), string(stats.PeriodAll)),
)

var toolListPrograms = mcp.NewTool("list_programs",
	mcp.WithDescription("List all training programs with difficulty, duration and number of workouts."),
)

var toolGetProgram = mcp.NewTool("get_program",
	mcp.WithDescription("Get one training program with every workout and exercise (reps or duration, sets, rest)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Program ID (e.g. weight_loss, strength)")),
)

var toolGetProgress = mcp.NewTool("get_progress",
	mcp.WithDescription("Progress through the active program: completed workouts, remaining workouts and percent done, plus previously finished programs."),
)

var toolGetStatistics = mcp.NewTool("get_statistics",
	mcp.WithDescription("All-time workout totals (workouts, minutes, calories) and the totals for a reporting period."),
	periodOption,
)

var toolGetWeightHistory = mcp.NewTool("get_weight_history",
	mcp.WithDescription("Body weight samples inside a reporting period, oldest first."),
	periodOption,
)

var toolGetWorkoutCounts = mcp.NewTool("get_workout_counts",
	mcp.WithDescription("Number of workouts per day (week, month) or per month (year, all). Empty buckets are included."),
	periodOption,
)

var toolGetWorkoutLog = mcp.NewTool("get_workout_log",
	mcp.WithDescription("Completed workouts with program, workout, minutes and calories."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("program", mcp.Description("Only workouts of this program ID")),
)

var toolLogWeight = mcp.NewTool("log_weight",
	mcp.WithDescription("Record a body weight measurement in kilograms."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight in kg")),
	mcp.WithString("date", mcp.Description("Measurement date. Defaults to now.")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("The running workout session: state, current exercise, set number and timer."),
)

// --- Tool handlers ---

type programSummary struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Difficulty    models.Difficulty `json:"difficulty"`
	DurationWeeks int               `json:"durationWeeks,omitempty"`
	Workouts      int               `json:"workouts"`
}

func (h *handlers) listPrograms(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	programs, err := h.ds.ListPrograms(ctx)
	if err != nil {
		h.log.Error("mcp list_programs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := make([]programSummary, 0, len(programs))
	for _, p := range programs {
		out = append(out, programSummary{
			ID:            p.ID,
			Title:         p.Title,
			Difficulty:    p.Difficulty,
			DurationWeeks: p.DurationWeeks,
			Workouts:      len(p.Workouts),
		})
	}
	return jsonResult(out)
}

func (h *handlers) getProgram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	p, err := h.ds.GetProgram(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return mcp.NewToolResultError("unknown program: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_program", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(p)
}

type progressReport struct {
	Active    *models.ActiveProgress    `json:"active"`
	Program   string                    `json:"program,omitempty"`
	Remaining []string                  `json:"remainingWorkouts,omitempty"`
	Percent   int                       `json:"percent"`
	Completed []models.CompletedProgram `json:"completedPrograms"`
}

func (h *handlers) progress(ctx context.Context) (progressReport, error) {
	var r progressReport
	active, err := h.ds.ActiveProgress(ctx)
	if err != nil {
		return r, err
	}
	r.Active = active
	if active != nil {
		if p, err := h.ds.GetProgram(ctx, active.ProgramID); err == nil {
			r.Program = p.Title
			for _, w := range p.Workouts {
				if !active.HasCompleted(w.ID) {
					r.Remaining = append(r.Remaining, w.ID)
				}
			}
			if n := len(p.Workouts); n > 0 {
				r.Percent = (n - len(r.Remaining)) * 100 / n
			}
		}
	}
	r.Completed, err = h.ds.CompletedPrograms(ctx)
	if err != nil {
		return r, err
	}
	if r.Completed == nil {
		r.Completed = []models.CompletedProgram{}
	}
	return r, nil
}

func (h *handlers) getProgress(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := h.progress(ctx)
	if err != nil {
		h.log.Error("mcp get_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(r)
}

func (h *handlers) getStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period, err := stats.ParsePeriod(req.GetString("period", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	totals, err := h.ds.Totals(ctx)
	if err != nil {
		h.log.Error("mcp get_statistics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	summary, err := h.ds.Summary(ctx, period)
	if err != nil {
		h.log.Error("mcp get_statistics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	return jsonResult(map[string]any{
		"totals": totals,
		"period": summary,
	})
}

func (h *handlers) getWeightHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period, err := stats.ParsePeriod(req.GetString("period", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	points, err := h.ds.WeightHistory(ctx, period)
	if err != nil {
		h.log.Error("mcp get_weight_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(points)
}

func (h *handlers) getWorkoutCounts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period, err := stats.ParsePeriod(req.GetString("period", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	buckets, err := h.ds.WorkoutCounts(ctx, period)
	if err != nil {
		h.log.Error("mcp get_workout_counts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(buckets)
}

func (h *handlers) getWorkoutLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), h.now(), 30)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	program := req.GetString("program", "")

	entries, err := h.ds.WorkoutLog(ctx)
	if err != nil {
		h.log.Error("mcp get_workout_log", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := []models.WorkoutLogEntry{}
	for _, e := range entries {
		if e.Date.Before(start) || e.Date.After(end) {
			continue
		}
		if program != "" && e.ProgramID != program {
			continue
		}
		out = append(out, e)
	}
	return jsonResult(out)
}

func (h *handlers) logWeight(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}

	var date time.Time
	if s := req.GetString("date", ""); s != "" {
		date, err = parseFlexTime(s)
		if err != nil {
			return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
		}
	}

	if err := h.ds.AddWeight(ctx, date, weight); err != nil {
		if errors.Is(err, models.ErrInvalid) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		h.log.Error("mcp log_weight", "error", err)
		return mcp.NewToolResultError("write failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText("weight recorded"), nil
}

func (h *handlers) getSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := h.ds.Session(ctx)
	if err != nil {
		h.log.Error("mcp get_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(snap)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
