package main

import (
	"github.com/goliatone/go-entityform/internal/mockapi"
	"github.com/goliatone/go-entityform/pkg/model"
)

func seedSample(s *mockapi.Server) {
	s.Seed("admin", model.Values{"id": "adm-1", "fullName": "Layla Hassan", "email": "layla@example.com", "phone": "771234567"})
	s.Seed("manager", model.Values{"id": "mgr-1", "fullName": "Omar Saleh", "email": "omar@example.com", "phone": "733456789", "active": true})
	s.Seed("grade",
		model.Values{"id": "grd-7", "name": "Grade 7", "level": 7.0},
		model.Values{"id": "grd-8", "name": "Grade 8", "level": 8.0},
	)
	s.Seed("student", model.Values{"id": "stu-1", "fullName": "Mona Ali", "email": "mona@example.com", "phone": "711222333", "gradeId": "grd-7"})
	s.Seed("subject", model.Values{"id": "sub-math", "name": "Mathematics", "gradeId": "grd-7"})
	s.Seed("unit", model.Values{"id": "unt-1", "title": "Fractions", "subjectId": "sub-math", "order": 1.0})
	s.Seed("lesson",
		model.Values{"id": "les-1", "unitId": "unt-1", "title": "What is a fraction?", "order": 1.0},
		model.Values{"id": "les-2", "unitId": "unt-1", "title": "Adding fractions", "order": 2.0},
	)
	s.Seed("competition", model.Values{"id": "cmp-1", "title": "Spring maths cup", "startDate": "2026-03-01", "endDate": "2026-03-15", "reward": "prize", "prizeNote": "A tablet"})
	s.Seed("exam", model.Values{"id": "exm-1", "title": "Fractions quiz", "subjectId": "sub-math", "startTime": "09:00", "endTime": "10:00", "duration": 60.0, "maxScore": 100.0, "passScore": 50.0, "active": true})
}
