package workflow

import (
	"github.com/kuitang/dms-e2e/internal/driver"
)

// Site locates everything the check touches on the target site.
type Site struct {
	MainMenu        driver.Locator
	DMSLink         driver.Locator
	ProductTitle    driver.Locator
	SendApplication driver.Locator
	Submit          driver.Locator
	EmailValidation driver.Locator

	// ProductTitleText must appear in the product page title.
	ProductTitleText string
	// FormTitleText must appear in the application page markup.
	FormTitleText string

	LastName    driver.Locator
	FirstName   driver.Locator
	MiddleName  driver.Locator
	Region      driver.Locator
	Phone       driver.Locator
	Email       driver.Locator
	ContactDate driver.Locator
	Comment     driver.Locator
	Consent     driver.Locator
}

// DefaultSite describes the DMS pages of www.rgs.ru.
func DefaultSite() Site {
	return Site{
		MainMenu:        driver.ByXPath("//div[@id='main-navbar-collapse']//a[contains(text(), 'Меню')]"),
		DMSLink:         driver.ByXPath("//a[contains(text(), 'ДМС')]"),
		ProductTitle:    driver.ByXPath("//h1[@class='content-document-header']"),
		SendApplication: driver.ByXPath("//a[contains(text(), 'Отправить заявку')]"),
		Submit:          driver.ByXPath("//button[@id='button-m']"),
		EmailValidation: driver.ByXPath("//span[contains(text(), 'Введите адрес электронной почты')]"),

		ProductTitleText: "добровольное медицинское страхование",
		FormTitleText:    "Заявка на добровольное медицинское страхование",

		LastName:    driver.ByName("LastName"),
		FirstName:   driver.ByName("FirstName"),
		MiddleName:  driver.ByName("MiddleName"),
		Region:      driver.ByName("Region"),
		Phone:       driver.ByXPath("//label[text()='Телефон']/following-sibling::input"),
		Email:       driver.ByName("Email"),
		ContactDate: driver.ByName("ContactDate"),
		Comment:     driver.ByName("Comment"),
		Consent:     driver.ByXPath("//input[@class='checkbox']"),
	}
}
