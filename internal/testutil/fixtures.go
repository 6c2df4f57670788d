package testutil

import "github.com/roach88/tally/internal/records"

// Meals returns a fresh copy of the meal log used across package tests.
//
//	meal       food      calories  date
//	Breakfast  Eggs      100       2024-02-03
//	Breakfast  Toast     130       2024-03-04
//	Lunch      Salad     80.5      2024-02-10
//	Dinner     Steak     450       2024-04-01
//	Breakfast  Pancakes  300       2024-02-20
func Meals() []records.Record {
	return []records.Record{
		{"meal": "Breakfast", "food": "Eggs", "calories": 100.0, "date": "2024-02-03"},
		{"meal": "Breakfast", "food": "Toast", "calories": 130.0, "date": "2024-03-04"},
		{"meal": "Lunch", "food": "Salad", "calories": 80.5, "date": "2024-02-10"},
		{"meal": "Dinner", "food": "Steak", "calories": 450.0, "date": "2024-04-01"},
		{"meal": "Breakfast", "food": "Pancakes", "calories": 300.0, "date": "2024-02-20"},
	}
}

// MealsCollection returns Meals as an in-memory handle.
func MealsCollection() *records.Collection {
	return records.NewCollection(Meals())
}
