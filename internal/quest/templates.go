// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package quest

// templatePool holds the rotating quest titles for each category.
// Week generation walks this pool with a wrapping window, so order matters:
// neighbouring titles appear together on the same day.
var templatePool = map[CategoryKey][]string{
	CategoryExercise: {
		"Take a 30-minute walk",
		"Do 20 push-ups",
		"Stretch for 10 minutes",
		"Do a 15-minute home workout",
		"Climb stairs instead of the elevator",
		"Do 30 squats",
		"Go for a light jog",
	},
	CategoryLearning: {
		"Read 20 pages of a book",
		"Watch one educational video and take notes",
		"Review yesterday's notes",
		"Learn 10 new vocabulary words",
		"Summarize an article in your own words",
		"Practice a skill for 25 minutes",
	},
	CategoryHabit: {
		"Make your bed after waking up",
		"Write tomorrow's to-do list",
		"Tidy your desk for 5 minutes",
		"Drink a glass of water after waking",
		"No phone for the first 30 minutes of the day",
		"Journal three lines before bed",
	},
	CategoryFaith: {
		"Spend 10 minutes in prayer or reflection",
		"Read a short passage of scripture",
		"Write down three things you are grateful for",
		"Sit in silence for 5 minutes",
		"Encourage someone with a kind message",
		"Reflect on one value you want to live by",
	},
	CategoryCharacter: {
		"Give a sincere compliment",
		"Listen to someone without interrupting",
		"Admit a mistake honestly",
		"Do a small favor without being asked",
		"Hold back one complaint today",
		"Thank someone who helped you",
	},
	CategoryFinance: {
		"Record today's spending",
		"Skip one impulse purchase",
		"Review a subscription you can cancel",
		"Set aside a small amount into savings",
		"Check your account balance",
		"Plan tomorrow's meals to avoid eating out",
	},
	CategorySleep: {
		"Go to bed at the same time as yesterday",
		"No screens 30 minutes before bed",
		"Skip caffeine after 2 PM",
		"Air out the bedroom before sleeping",
		"Do a 5-minute wind-down routine",
		"Wake up without pressing snooze",
	},
	CategoryDiet: {
		"Eat a serving of vegetables with every meal",
		"Drink 8 glasses of water",
		"Skip sugary drinks today",
		"Eat breakfast within an hour of waking",
		"Stop eating before you feel full",
		"Prepare one meal at home",
	},
	CategoryMental: {
		"Do a 5-minute breathing exercise",
		"Take a 10-minute walk without your phone",
		"Write down what is worrying you",
		"Name three good things that happened today",
		"Take a short break every 90 minutes",
		"Say no to one thing that drains you",
	},
}

// Templates returns the title pool for a category.
// Unknown categories return an empty pool.
func Templates(c CategoryKey) []string {
	return templatePool[c]
}
