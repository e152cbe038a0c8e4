package bot

// User-facing message texts. Markdown unless noted.
const (
	textWelcome = "Welcome to Frappe Lead Bot!"

	textHelp = "*Frappe Lead Bot – Quick Help*\n\n" +
		"*1. Connect your CRM*\n" +
		"`/setcrm <alias or URL>` then `/login <alias> <username> <password>`\n\n" +
		"*2. Create a Lead or Deal*\n" +
		"Tap Create on /start, then send a voice message and confirm the draft\n\n" +
		"*3. Search*\n" +
		"`/searchleads Acme` or `/searchdeals Acme` shows the top 5 results to select and update\n\n" +
		"*4. Search tips*\n" +
		"Use the organization name, contact name, or record ID.\n" +
		"Filters: `/searchleads Acme filter:owner:glenn,status:Open`\n\n" +
		"*5. Manage connections*\n" +
		"`/listcrm`, `/usecrm <alias>`, `/delcrm <alias>`\n\n" +
		"Need help? Just type /help!"

	textNoCRM = "No CRM selected. Use `/setcrm <alias or URL>` and `/login <alias> <username> <password>` first."

	textFilterHelp = "Filter by:\n`owner:glenn`\n`status:Open`\n\n" +
		"Send: `/searchleads Test filter:owner:glenn,status:Open`"

	textCancelled = "Cancelled."
)
