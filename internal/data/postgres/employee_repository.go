package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/employee"
	"github.com/fsp-loan-gateway/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// EmployeeRepository implements employee.Repository for PostgreSQL
type EmployeeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewEmployeeRepository(logger *slog.Logger, db *persistence.PostgresDB) employee.Repository {
	return &EmployeeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *EmployeeRepository) WithTx(tx pgx.Tx) employee.Repository {
	return &EmployeeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *EmployeeRepository) GetByCheckNumber(ctx context.Context, checkNumber string) (*employee.Employee, error) {
	query := `
		SELECT id, check_number, first_name, middle_name, last_name, sex, nin, mobile_number, email_address,
			bank_account_number, vote_code, vote_name, designation_code, designation_name, employment_date,
			retirement_date, basic_salary, net_salary, one_third_amount, total_employee_deduction,
			created_at, updated_at
		FROM employees
		WHERE check_number = $1
	`

	var emp employee.Employee
	err := r.querier.QueryRow(ctx, query, checkNumber).Scan(
		&emp.ID,
		&emp.CheckNumber,
		&emp.FirstName,
		&emp.MiddleName,
		&emp.LastName,
		&emp.Sex,
		&emp.NIN,
		&emp.MobileNumber,
		&emp.EmailAddress,
		&emp.BankAccountNumber,
		&emp.VoteCode,
		&emp.VoteName,
		&emp.DesignationCode,
		&emp.DesignationName,
		&emp.EmploymentDate,
		&emp.RetirementDate,
		&emp.BasicSalary,
		&emp.NetSalary,
		&emp.OneThirdAmount,
		&emp.TotalEmployeeDeduction,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound{CheckNumber: checkNumber}
		}
		r.logger.Error("Failed to get employee", "check_number", checkNumber, "error", err)
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &emp, nil
}

// Upsert keeps one row per check number; the latest offer's payroll snapshot wins
func (r *EmployeeRepository) Upsert(ctx context.Context, emp *employee.Employee) error {
	query := `
		INSERT INTO employees (check_number, first_name, middle_name, last_name, sex, nin, mobile_number,
			email_address, bank_account_number, vote_code, vote_name, designation_code, designation_name,
			employment_date, retirement_date, basic_salary, net_salary, one_third_amount,
			total_employee_deduction, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		ON CONFLICT (check_number) DO UPDATE
		SET first_name = EXCLUDED.first_name,
			middle_name = EXCLUDED.middle_name,
			last_name = EXCLUDED.last_name,
			sex = EXCLUDED.sex,
			nin = EXCLUDED.nin,
			mobile_number = EXCLUDED.mobile_number,
			email_address = EXCLUDED.email_address,
			bank_account_number = EXCLUDED.bank_account_number,
			vote_code = EXCLUDED.vote_code,
			vote_name = EXCLUDED.vote_name,
			designation_code = EXCLUDED.designation_code,
			designation_name = EXCLUDED.designation_name,
			employment_date = EXCLUDED.employment_date,
			retirement_date = EXCLUDED.retirement_date,
			basic_salary = EXCLUDED.basic_salary,
			net_salary = EXCLUDED.net_salary,
			one_third_amount = EXCLUDED.one_third_amount,
			total_employee_deduction = EXCLUDED.total_employee_deduction,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.querier.QueryRow(ctx, query,
		emp.CheckNumber,
		emp.FirstName,
		emp.MiddleName,
		emp.LastName,
		emp.Sex,
		emp.NIN,
		emp.MobileNumber,
		emp.EmailAddress,
		emp.BankAccountNumber,
		emp.VoteCode,
		emp.VoteName,
		emp.DesignationCode,
		emp.DesignationName,
		emp.EmploymentDate,
		emp.RetirementDate,
		emp.BasicSalary,
		emp.NetSalary,
		emp.OneThirdAmount,
		emp.TotalEmployeeDeduction,
	).Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert employee", "check_number", emp.CheckNumber, "error", err)
		return fmt.Errorf("failed to upsert employee: %w", err)
	}

	return nil
}
