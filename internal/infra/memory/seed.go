package memory

import "chess-quiz-service/internal/domain"

// SeedQuestions returns the built-in Python loop catalog. IDs start at 1.
func SeedQuestions() []domain.Question {
	questions := []domain.Question{
		{
			Prompt:        "What is the output of the following code?\n\nfor i in range(5):\n    print(i)",
			Options:       []string{"0 1 2 3 4", "1 2 3 4 5", "0 1 2 3 4 5", "0 1 2 3"},
			CorrectAnswer: "0 1 2 3 4",
			Difficulty:    domain.Easy,
			Explanation:   "range(5) yields 0 through 4; the stop value is excluded.",
			Position:      "A1",
		},
		{
			Prompt:        "Which loop is used when you want to repeat a block of code an unknown number of times until a condition is met?",
			Options:       []string{"for loop", "while loop", "do-while loop", "repeat loop"},
			CorrectAnswer: "while loop",
			Difficulty:    domain.Easy,
			Explanation:   "A while loop re-checks its condition before every iteration. Python has no do-while.",
			Position:      "A2",
		},
		{
			Prompt:        "What is the output of this code?\n\nfor i in range(1, 10, 2):\n    print(i, end=\" \")",
			Options:       []string{"1 3 5 7 9", "1 2 3 4 5 6 7 8 9", "2 4 6 8", "0 2 4 6 8"},
			CorrectAnswer: "1 3 5 7 9",
			Difficulty:    domain.Medium,
			Explanation:   "range(1, 10, 2) starts at 1 and steps by 2 while staying below 10.",
			Position:      "A3",
		},
		{
			Prompt:        "How do you exit a loop prematurely in Python?",
			Options:       []string{"exit", "break", "return", "continue"},
			CorrectAnswer: "break",
			Difficulty:    domain.Easy,
			Explanation:   "break leaves the innermost enclosing loop immediately.",
			Position:      "A4",
		},
		{
			Prompt: "What does the \"continue\" statement do in a loop?",
			Options: []string{
				"Exits the loop completely",
				"Skips the current iteration and continues with the next",
				"Pauses the loop execution",
				"Restarts the loop from the beginning",
			},
			CorrectAnswer: "Skips the current iteration and continues with the next",
			Difficulty:    domain.Medium,
			Explanation:   "continue jumps straight to the next iteration of the loop.",
			Position:      "A5",
		},
		{
			Prompt:        "What will be the output of this code?\n\ni = 0\nwhile i < 5:\n    if i == 3:\n        break\n    print(i)\n    i += 1",
			Options:       []string{"0 1 2", "0 1 2 3 4", "0 1 2 3", "0 1 2 4"},
			CorrectAnswer: "0 1 2",
			Difficulty:    domain.Medium,
			Explanation:   "The loop breaks when i reaches 3, before 3 is printed.",
			Position:      "A6",
		},
		{
			Prompt:        "How do you iterate through a list named \"fruits\" in Python?",
			Options:       []string{"for fruit in fruits:", "foreach fruit in fruits:", "for (fruit in fruits)", "loop through fruits:"},
			CorrectAnswer: "for fruit in fruits:",
			Difficulty:    domain.Easy,
			Explanation:   "Python's for statement iterates directly over the items of any iterable.",
			Position:      "A7",
		},
		{
			Prompt: "What is the output of this nested loop?\n\nfor i in range(3):\n    for j in range(2):\n        print(i, j)",
			Options: []string{
				"0 0, 0 1, 1 0, 1 1, 2 0, 2 1",
				"0 0, 1 0, 2 0, 0 1, 1 1, 2 1",
				"0 0, 0 1, 0 2, 1 0, 1 1, 1 2",
				"0 0, 1 1, 2 2",
			},
			CorrectAnswer: "0 0, 0 1, 1 0, 1 1, 2 0, 2 1",
			Difficulty:    domain.Hard,
			Explanation:   "The inner loop runs to completion for every value of the outer loop.",
			Position:      "A8",
		},
		{
			Prompt:        "What Python loop would you use to iterate through a dictionary's keys and values simultaneously?",
			Options:       []string{"for k, v in dict.items():", "for k, v in dict:", "foreach k, v in dict:", "for (k, v) in dict.items():"},
			CorrectAnswer: "for k, v in dict.items():",
			Difficulty:    domain.Medium,
			Explanation:   "items() yields (key, value) pairs which unpack into k and v.",
			Position:      "B1",
		},
		{
			Prompt:        "How do you create an infinite loop in Python?",
			Options:       []string{"while True:", "for i in infinite:", "loop forever:", "while 1 == 1:"},
			CorrectAnswer: "while True:",
			Difficulty:    domain.Easy,
			Explanation:   "while True: never becomes false, so only break or an exception ends it.",
			Position:      "B2",
		},
		{
			Prompt:        "What does this print?\n\nfor i in range(3):\n    pass\nelse:\n    print(\"done\")",
			Options:       []string{"done", "nothing", "0 1 2 done", "SyntaxError"},
			CorrectAnswer: "done",
			Difficulty:    domain.Hard,
			Explanation:   "A loop's else block runs when the loop finishes without break.",
		},
		{
			Prompt:        "Write the expression that builds a list of the squares of 0 through 4 in a single line.",
			CorrectAnswer: "[x**2 for x in range(5)]",
			Difficulty:    domain.Hard,
			Explanation:   "A list comprehension evaluates x**2 for every x produced by range(5).",
		},
		{
			Prompt:        "Which built-in gives you both the index and the value while looping over a list?",
			Options:       []string{"enumerate", "zip", "range", "index"},
			CorrectAnswer: "enumerate",
			Difficulty:    domain.Medium,
			Explanation:   "enumerate(seq) yields (index, item) tuples.",
		},
	}
	for i := range questions {
		questions[i].ID = int64(i + 1)
	}
	return questions
}
