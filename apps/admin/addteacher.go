package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/teacher"
)

// addTeacher updates or creates a teacher.Teacher
func (cli *commandLine) addTeacher(name string, number int, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	tch, err := cli.tchRepo.GetTeacher(ctx, teacher.GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) != teacher.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		tch = teacher.Teacher{
			Name:      name,
			TeacherNo: number,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else {
		tch.Name = name
		tch.TeacherNo = number
	}
	if err := tch.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.tchRepo.UpdateOrCreateTeacher(ctx, tch); err != nil {
		return err
	}
	return nil
}
