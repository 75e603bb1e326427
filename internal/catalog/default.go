package catalog

import "github.com/claude/repflow/internal/models"

// DailyProgramID is the program that is always available alongside
// whatever program the user has adopted.
const DailyProgramID = "daily_fitness"

// Default returns the built-in catalog.
func Default() []models.Program {
	return []models.Program{
		{
			ID:            DailyProgramID,
			Title:         "Daily Fitness",
			Description:   "Short sessions for any day, no commitment.",
			Icon:          "☀️",
			Difficulty:    models.DifficultyBeginner,
			DurationWeeks: 0,
			PerWeek:       7,
			Workouts: []models.Workout{
				{
					ID: "morning", Name: "Morning Energizer", Type: "functional",
					Minutes: 10, Calories: 60,
					Exercises: []models.Exercise{
						{ID: "jumping_jacks", Name: "Jumping Jacks", Type: "warmup", Duration: 45, Rest: 15},
						{ID: "squats", Name: "Bodyweight Squats", Type: "strength", Reps: 15, Sets: 2, Rest: 30},
						{ID: "plank", Name: "Plank", Type: "static", Duration: 30, Rest: 20},
						{ID: "stretch", Name: "Standing Stretch", Type: "stretch", Duration: 60},
					},
				},
				{
					ID: "evening", Name: "Evening Mobility", Type: "stretch",
					Minutes: 12, Calories: 40,
					Exercises: []models.Exercise{
						{ID: "cat_cow", Name: "Cat-Cow", Type: "stretch", Reps: 10, Rest: 15},
						{ID: "hip_opener", Name: "Hip Opener", Type: "stretch", Duration: 60, Sets: 2, RestBetweenSets: 15},
						{ID: "child_pose", Name: "Child's Pose", Type: "cooldown", Duration: 90},
					},
				},
			},
		},
		{
			ID:            "weight_loss",
			Title:         "Weight Loss",
			Description:   "Cardio-heavy circuits to burn fat.",
			Icon:          "🔥",
			Difficulty:    models.DifficultyBeginner,
			DurationWeeks: 4,
			PerWeek:       3,
			Workouts: []models.Workout{
				{
					ID: "w1", Name: "Fat Burn Basics", Type: "cardio",
					Minutes: 20, Calories: 180,
					Exercises: []models.Exercise{
						{ID: "squats", Name: "Squats", Type: "strength", Reps: 15, Sets: 3, Rest: 45},
						{ID: "high_knees", Name: "High Knees", Type: "cardio", Duration: 60},
					},
				},
				{
					ID: "w2", Name: "HIIT Intro", Type: "hiit",
					Minutes: 25, Calories: 250,
					Exercises: []models.Exercise{
						{ID: "burpees", Name: "Burpees", Type: "hiit", Reps: 10, Sets: 3, Rest: 60},
						{ID: "mountain_climbers", Name: "Mountain Climbers", Type: "cardio", Duration: 40, Sets: 3, Rest: 30},
						{ID: "crunches", Name: "Crunches", Type: "core", Reps: 20, Sets: 2},
						{ID: "cooldown_walk", Name: "Cool-down Walk", Type: "cooldown", Duration: 120},
					},
				},
			},
		},
		{
			ID:            "strength_builder",
			Title:         "Strength Builder",
			Description:   "Progressive bodyweight strength training.",
			Icon:          "🏋️",
			Difficulty:    models.DifficultyIntermediate,
			DurationWeeks: 8,
			PerWeek:       4,
			Workouts: []models.Workout{
				{
					ID: "upper", Name: "Upper Body", Type: "strength",
					Minutes: 35, Calories: 220,
					Exercises: []models.Exercise{
						{ID: "arm_circles", Name: "Arm Circles", Type: "warmup", Duration: 60, Rest: 15},
						{ID: "pushups", Name: "Push-ups", Type: "strength", Reps: 12, Sets: 4, Rest: 90},
						{ID: "dips", Name: "Chair Dips", Type: "strength", Reps: 10, Sets: 3, Rest: 90},
						{ID: "pike_pushups", Name: "Pike Push-ups", Type: "strength", Reps: 8, Sets: 3, Rest: 90},
					},
				},
				{
					ID: "lower", Name: "Lower Body", Type: "strength",
					Minutes: 35, Calories: 260,
					Exercises: []models.Exercise{
						{ID: "lunges", Name: "Walking Lunges", Type: "strength", Reps: 12, Sets: 4, Rest: 90},
						{ID: "glute_bridge", Name: "Glute Bridge", Type: "strength", Reps: 15, Sets: 3, Rest: 60},
						{ID: "wall_sit", Name: "Wall Sit", Type: "static", Duration: 45, Sets: 3, Rest: 60},
					},
				},
				{
					ID: "core", Name: "Core Stability", Type: "core",
					Minutes: 20, Calories: 120,
					Exercises: []models.Exercise{
						{ID: "dead_bug", Name: "Dead Bug", Type: "core", Reps: 12, Sets: 3, Rest: 45},
						{ID: "side_plank", Name: "Side Plank", Type: "static", Duration: 30, Sets: 2, Rest: 30},
					},
				},
			},
		},
	}
}
