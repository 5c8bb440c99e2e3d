package tables

import (
	"context"

	"github.com/JonMunkholm/salon/internal/core"
	"github.com/JonMunkholm/salon/internal/model"
)

func init() {
	registerServices()
	registerClients()
	registerBookings()
}

// Header names below are those of the front desk's spreadsheet exports,
// which prefix most columns with a space.

func registerServices() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   model.TableService,
			Label: "Services",
			Param: "services",
			Stage: core.StageEntities,
		},
		DefaultMapping: core.Mapping{
			{Source: "Наименование услуги", Field: core.FieldTitle},
			{Source: "Главное изображение", Field: core.FieldImage},
			{Source: "Длительность", Field: core.FieldDuration},
			{Source: "Стоимость", Field: core.FieldCost},
			{Source: "Действующая скидка", Field: core.FieldDiscount},
			{Source: "Описание", Field: core.FieldDescription},
		},
		Build: func(_ context.Context, rows []core.Canonical, _ core.Lookup) (core.Built, error) {
			out := make([]model.Row, len(rows))
			for i, r := range rows {
				out[i] = model.ServiceOffering{
					Title:           r.Text(core.FieldTitle),
					Cost:            r.Float(core.FieldCost),
					DiscountFactor:  discountOrNone(r),
					DurationSeconds: r.Int(core.FieldDuration),
					Description:     r.Text(core.FieldDescription),
					ImagePath:       r.Text(core.FieldImage),
				}.Row()
			}
			return core.Built{Rows: out}, nil
		},
	})
}

// discountOrNone treats an unmapped discount column as "no discount".
func discountOrNone(r core.Canonical) float64 {
	if !r.Has(core.FieldDiscount) {
		return 1
	}
	return r.Float(core.FieldDiscount)
}

func registerClients() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   model.TableClient,
			Label: "Clients",
			Param: "clients",
			Stage: core.StageEntities,
		},
		DefaultMapping: core.Mapping{
			{Source: "Фамилия", Field: core.FieldLastName},
			{Source: "Имя", Field: core.FieldFirstName},
			{Source: "Отчество", Field: core.FieldPatronymic},
			{Source: "Пол", Field: core.FieldGender},
			{Source: "Телефон", Field: core.FieldPhone},
			{Source: "Email", Field: core.FieldEmail},
			{Source: "Дата рождения", Field: core.FieldBirthday},
			{Source: "Дата регистрации", Field: core.FieldRegistrationDate},
		},
		Build: func(_ context.Context, rows []core.Canonical, _ core.Lookup) (core.Built, error) {
			out := make([]model.Row, len(rows))
			for i, r := range rows {
				gender := r.Text(core.FieldGender)
				if gender == "" {
					gender = model.GenderUnspecified
				}
				out[i] = model.ClientRecord{
					LastName:         r.Text(core.FieldLastName),
					FirstName:        r.Text(core.FieldFirstName),
					Patronymic:       r.Text(core.FieldPatronymic),
					GenderCode:       gender,
					Phone:            r.Text(core.FieldPhone),
					Email:            r.Text(core.FieldEmail),
					Birthday:         r.Text(core.FieldBirthday),
					RegistrationDate: r.Text(core.FieldRegistrationDate),
				}.Row()
			}
			return core.Built{Rows: out}, nil
		},
	})
}

func registerBookings() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   model.TableClientService,
			Label: "Bookings",
			Param: "bookings",
			Stage: core.StageLinks,
		},
		DefaultMapping: core.Mapping{
			{Source: "Клиент", Field: core.FieldClient},
			{Source: "Услуга", Field: core.FieldService},
			{Source: "Начало оказания услуги", Field: core.FieldStartTime},
			{Source: "Комментарий", Field: core.FieldComment},
		},
		Build: func(ctx context.Context, rows []core.Canonical, lookup core.Lookup) (core.Built, error) {
			linked, err := core.LinkBookingBatch(ctx, rows, lookup)
			if err != nil {
				return core.Built{Rejects: linked.Rejects, Issues: linked.Issues}, err
			}
			out := make([]model.Row, len(linked.Bookings))
			for i, b := range linked.Bookings {
				out[i] = b.Row()
			}
			return core.Built{Rows: out, Rejects: linked.Rejects, Issues: linked.Issues}, nil
		},
	})
}
